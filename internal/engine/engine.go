package engine

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/cinereel/internal/analyzer"
	"github.com/ivlev/cinereel/internal/config"
	"github.com/ivlev/cinereel/internal/director"
	"github.com/ivlev/cinereel/internal/effects"
	"github.com/ivlev/cinereel/internal/metrics"
	"github.com/ivlev/cinereel/internal/renderer"
	"github.com/ivlev/cinereel/internal/system"
	"github.com/ivlev/cinereel/internal/video"
)

// SinkOpener creates the sink a render writes into.
type SinkOpener func(ctx context.Context, opts video.SinkOptions) (video.FrameSink, error)

type VideoProject struct {
	Config *config.Config
	Logger *zap.Logger
	Pool   *system.FramePool

	// Open defaults to video.Open with the configured sink kind.
	Open SinkOpener
	// Progress, if set, is called from the sink goroutine after every
	// appended frame.
	Progress func(done, total int)
}

func NewVideoProject(cfg *config.Config, logger *zap.Logger) *VideoProject {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &VideoProject{
		Config: cfg,
		Logger: logger,
		Pool:   system.NewFramePool(),
	}
	p.Open = func(ctx context.Context, opts video.SinkOptions) (video.FrameSink, error) {
		return video.Open(ctx, p.Config.Sink, opts)
	}
	return p
}

// Result describes a finished render.
type Result struct {
	RunID                uuid.UUID
	Path                 string
	TotalDurationSeconds float64
	FrameCount           int
	Palette              string
	Camera               config.CameraMode
	Stats                Stats
}

type Stats struct {
	Workers   int
	Prepare   time.Duration // normalization and focus analysis
	Render    time.Duration // frame production and encoding
	Finalize  time.Duration // sink close
	Total     time.Duration
	Allocated int64 // frame buffers created by the pool
}

// Run renders tl into path. Nothing is written if the timeline, a scene
// image or the configuration is invalid; any later failure or cancellation
// aborts the sink so no partial file is left behind.
func (p *VideoProject) Run(ctx context.Context, tl *director.Timeline, path string) (res *Result, err error) {
	startTime := time.Now()
	runID := uuid.New()
	log := p.Logger.With(zap.String("run_id", runID.String()))

	ctx, span := otel.Tracer("engine").Start(ctx, "VideoProject.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID.String()),
		attribute.String("output.path", path),
	)
	defer func() {
		status := "success"
		switch {
		case err != nil && ctx.Err() != nil:
			status = "cancelled"
		case err != nil:
			status = "failed"
		}
		metrics.RendersTotal.WithLabelValues(status).Inc()
		metrics.RenderDuration.WithLabelValues("total").Observe(time.Since(startTime).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err := p.Config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	_, planSpan := otel.Tracer("engine").Start(ctx, "BuildPlan")
	plan, err := director.BuildPlan(tl)
	planSpan.End()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("frames.total", plan.TotalFrames))

	palette, err := p.resolvePalette(tl)
	if err != nil {
		return nil, err
	}
	camera := tl.Style.CameraMode
	if camera == "" {
		camera = p.Config.CameraMode
	}
	if err := camera.Valid(); err != nil {
		return nil, err
	}

	var transition effects.Transition
	if plan.TransitionFrames > 0 {
		transition, err = effects.NewTransition(tl.Transition.Kind, effects.Options{
			FeatherPx: p.Config.FeatherPx,
			BlurZoom:  p.Config.BlurZoom,
		})
		if err != nil {
			return nil, err
		}
	}

	workers := p.Config.Workers
	if workers <= 0 {
		workers = system.RecommendWorkers(p.Config.Width, p.Config.Height)
	}

	log.Info("render started",
		zap.String("path", path),
		zap.Int("scenes", len(tl.Scenes)),
		zap.Int("frames", plan.TotalFrames),
		zap.Int("transition_frames", plan.TransitionFrames),
		zap.String("palette", palette.Name),
		zap.String("camera", string(camera)),
		zap.Int("workers", workers),
	)

	prepStart := time.Now()
	shots, err := p.prepareShots(ctx, tl, plan, camera, workers)
	if err != nil {
		return nil, err
	}
	prepTime := time.Since(prepStart)
	metrics.RenderDuration.WithLabelValues("prepare").Observe(prepTime.Seconds())

	// The sink must outlive the production errgroup context, which is
	// cancelled as soon as Wait returns.
	sink, err := p.Open(ctx, video.SinkOptions{
		Path:    path,
		Width:   p.Config.Width,
		Height:  p.Config.Height,
		FPS:     plan.FPS,
		Encoder: p.Config.VideoEncoder,
		Quality: p.Config.Quality,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	r := &frameRenderer{
		shots:      shots,
		transition: transition,
		grader:     effects.NewGrader(palette),
		pool:       p.Pool,
		width:      p.Config.Width,
		height:     p.Config.Height,
	}

	renderStart := time.Now()
	if err := p.produce(ctx, plan, r, sink, workers); err != nil {
		if aerr := sink.Abort(); aerr != nil {
			log.Warn("sink abort failed", zap.Error(aerr))
		}
		log.Error("render failed", zap.Error(err))
		return nil, err
	}
	renderTime := time.Since(renderStart)
	metrics.RenderDuration.WithLabelValues("render").Observe(renderTime.Seconds())

	closeStart := time.Now()
	_, closeSpan := otel.Tracer("engine").Start(ctx, "FrameSink.Close")
	err = sink.Close()
	closeSpan.End()
	if err != nil {
		log.Error("sink close failed", zap.Error(err))
		return nil, err
	}
	closeTime := time.Since(closeStart)

	res = &Result{
		RunID:                runID,
		Path:                 path,
		TotalDurationSeconds: plan.Duration(),
		FrameCount:           plan.TotalFrames,
		Palette:              palette.Name,
		Camera:               camera,
		Stats: Stats{
			Workers:   workers,
			Prepare:   prepTime,
			Render:    renderTime,
			Finalize:  closeTime,
			Total:     time.Since(startTime),
			Allocated: p.Pool.Allocated(),
		},
	}
	log.Info("render finished",
		zap.String("path", path),
		zap.Int("frames", res.FrameCount),
		zap.Float64("duration_s", res.TotalDurationSeconds),
		zap.Duration("elapsed", res.Stats.Total),
	)
	return res, nil
}

// resolvePalette takes the palette of the timeline's style, falling back to
// the config when the style leaves it empty, and maps "auto" to the default
// grade of the dominant scene style.
func (p *VideoProject) resolvePalette(tl *director.Timeline) (effects.Palette, error) {
	name := tl.Style.Palette
	if name == "" {
		name = p.Config.Palette
	}
	if name == effects.PaletteAuto {
		name = tl.DominantStyle().DefaultPalette()
	}
	return effects.LookupPalette(name, p.Config.Palettes)
}

// prepareShots normalizes every scene once so frame workers only read.
func (p *VideoProject) prepareShots(ctx context.Context, tl *director.Timeline, plan *director.RenderPlan, camera config.CameraMode, workers int) ([]*renderer.Shot, error) {
	ctx, span := otel.Tracer("engine").Start(ctx, "prepareShots")
	defer span.End()

	det, err := analyzer.NewDetector(p.Config.Detector)
	if err != nil {
		return nil, err
	}
	opts := renderer.ShotOptions{
		NormalizeOptions: renderer.NormalizeOptions{
			Width:      p.Config.Width,
			Height:     p.Config.Height,
			ZoomEnd:    p.Config.ZoomEnd,
			MaxUpscale: p.Config.MaxUpscale,
			Resampler:  p.Config.Resampler,
		},
		Mode:  camera,
		Pan:   p.Config.PanDirection,
		Focus: det,
	}

	shots := make([]*renderer.Shot, len(tl.Scenes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, scene := range tl.Scenes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			shot, err := renderer.NewShot(i, scene.Image, plan.SceneFrames[i], opts)
			if err != nil {
				return err
			}
			shots[i] = shot
			p.Logger.Debug("shot ready",
				zap.Int("scene", i),
				zap.String("camera", string(shot.Mode)),
				zap.Int("frames", shot.Frames),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return shots, nil
}

// frameRenderer turns a task into a graded output frame. It holds only
// read-only state, so any number of workers can share it.
type frameRenderer struct {
	shots      []*renderer.Shot
	transition effects.Transition
	grader     *effects.Grader
	pool       *system.FramePool
	width      int
	height     int
}

func (r *frameRenderer) render(task director.FrameTask) *image.RGBA {
	dst := r.pool.Get(r.width, r.height)

	switch task.Kind {
	case director.TaskTransition:
		a := r.pool.Get(r.width, r.height)
		b := r.pool.Get(r.width, r.height)
		from := r.shots[task.From]
		from.RenderFrame(a, from.LastFrame())
		r.shots[task.To].RenderFrame(b, 0)
		r.transition.Blend(dst, a, b, task.Factor)
		r.pool.Put(a)
		r.pool.Put(b)
	default:
		r.shots[task.Scene].RenderFrame(dst, task.Local)
	}

	r.grader.Grade(dst)
	return dst
}
