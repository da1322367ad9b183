package source

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/cinereel/internal/director"
)

// LoadOptions describes how pages become scenes.
type LoadOptions struct {
	DPI       int
	Durations []float64           // per scene, kept as given; scenes past the end use Duration
	Duration  float64             // default scene length in seconds
	Styles    []director.StyleTag // per scene; missing entries use Style
	Style     director.StyleTag
	Workers   int
}

// LoadScenes decodes every page of src in parallel and pairs it with its
// duration and style tag. Order follows the source.
func LoadScenes(ctx context.Context, src Source, opts LoadOptions) ([]director.Scene, error) {
	n := src.PageCount()
	if n == 0 {
		return nil, fmt.Errorf("источник не содержит страниц/кадров")
	}

	scenes := make([]director.Scene, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := src.RenderPage(i, opts.DPI)
			if err != nil {
				return fmt.Errorf("scene %d: %w", i, err)
			}

			scenes[i] = director.Scene{
				Image:    img,
				Duration: opts.Duration,
				Style:    opts.Style,
			}
			if i < len(opts.Durations) {
				scenes[i].Duration = opts.Durations[i]
			}
			if i < len(opts.Styles) && opts.Styles[i] != "" {
				scenes[i].Style = opts.Styles[i]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scenes, nil
}
