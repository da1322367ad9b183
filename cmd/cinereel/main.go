package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ivlev/cinereel/internal/config"
	"github.com/ivlev/cinereel/internal/director"
	"github.com/ivlev/cinereel/internal/engine"
	"github.com/ivlev/cinereel/internal/logger"
	"github.com/ivlev/cinereel/internal/metrics"
	"github.com/ivlev/cinereel/internal/source"
	"github.com/ivlev/cinereel/internal/system"
	"github.com/ivlev/cinereel/internal/tracing"
	"github.com/ivlev/cinereel/internal/video"
)

var buildVersion = "dev"

const (
	pdfDir      = "input/pdf"
	manifestDir = "input/manifests"
	outputDir   = "output"
)

var (
	configPtr        = flag.String("config", "", "YAML-файл конфигурации")
	inputPtr         = flag.String("input", "", "Путь к PDF или папке с изображениями (по умолчанию: самый свежий файл в input/pdf/)")
	manifestPtr      = flag.String("manifest", "", "YAML-манифест ролика; latest = самый свежий в input/manifests/")
	writeManifestPtr = flag.String("write-manifest", "", "Записать манифест для входных изображений и выйти; auto = input/manifests/reel_<время>.yaml")
	demoPtr          = flag.Int("demo", 0, "Собрать демо-ролик из N сгенерированных сцен")
	outputPtr        = flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")

	widthPtr      = flag.Int("width", 0, "Ширина")
	heightPtr     = flag.Int("height", 0, "Высота")
	presetPtr     = flag.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram), 1:1")
	fpsPtr        = flag.Int("fps", 0, "FPS")
	sceneDurPtr   = flag.Float64("scene-duration", 0, "Длительность показа одной сцены в секундах")
	totalPtr      = flag.Float64("total", 0, "Общая длительность ролика; сцены получают неравные длительности (±15%)")
	seedPtr       = flag.Int64("seed", 0, "Seed для -total (0 = текущее время)")
	transitionPtr = flag.String("transition", "", "Тип перехода: crossfade, zoom_blur, wipe_left, wipe_right")
	fadePtr       = flag.Float64("fade", -1, "Длительность перехода (сек)")
	featherPtr    = flag.Int("feather", -1, "Мягкость границы шторки (пиксели)")
	cameraPtr     = flag.String("camera", "", "Камера: none, zoomIn, zoomOut, zoomPan, cycle")
	zoomEndPtr    = flag.Float64("zoom-end", 0, "Конечный размер кадра камеры относительно холста (0..1]")
	panPtr        = flag.String("pan", "", "Направление панорамы: auto, top-left, top-right, bottom-left, bottom-right")
	palettePtr    = flag.String("palette", "", "Цветокоррекция: none, warm, cool, vintage, cyberpunk, auto")
	stylePtr      = flag.String("style", "", "Стиль сцен (cinematic, anime, realistic, cyberpunk, ...) для -palette auto")
	workersPtr    = flag.Int("workers", -1, "Потоки (0 - авто по CPU и памяти)")
	sinkPtr       = flag.String("sink", "", "Выход: auto, ffmpeg, mjpeg, frames")
	encoderPtr    = flag.String("encoder", "", "Видеокодек ffmpeg; auto = аппаратный, если доступен")
	qualityPtr    = flag.Int("quality", 0, "Качество видео (x264: CRF 1-51, NVENC: CQ, VideoToolbox: битрейт = Q*100кбит/с)")
	dpiPtr        = flag.Int("dpi", 0, "DPI для PDF")

	logLevelPtr = flag.String("log-level", "", "Уровень логов: debug, info, warn, error")
	metricsPtr  = flag.String("metrics-addr", "", "Адрес для /metrics и /healthz, например :9090")
	verifyPtr   = flag.Bool("verify", false, "Проверить результат через ffprobe")
	statsPtr    = flag.Bool("stats", false, "Показать отчет о производительности и дописать benchmark.log")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "\n[-] %v\n", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always runs.
func run() error {
	// .env необязателен
	_ = godotenv.Load()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}
	cfg.BuildVersion = buildVersion
	if err := applyFlags(cfg); err != nil {
		return fmt.Errorf("ошибка параметров: %w", err)
	}

	// Манифест может переопределить стиль, флаги важнее манифеста
	var manifest *director.Manifest
	if *manifestPtr != "" {
		manifest, err = loadManifest(*manifestPtr)
		if err != nil {
			return fmt.Errorf("ошибка чтения манифеста: %w", err)
		}
		if err := manifest.Apply(cfg); err != nil {
			return fmt.Errorf("ошибка манифеста: %w", err)
		}
		if err := applyFlags(cfg); err != nil {
			return fmt.Errorf("ошибка параметров: %w", err)
		}
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("ошибка логгера: %w", err)
	}
	defer log.Sync()

	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits(log)

	for _, d := range []string{pdfDir, manifestDir, outputDir} {
		os.MkdirAll(d, 0755)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint, buildVersion)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}
	if cfg.MetricsAddr != "" {
		srv := metrics.StartMetricsServer(cfg.MetricsAddr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	src, inputName, err := openSource(manifest)
	if err != nil {
		return fmt.Errorf("ошибка инициализации источника: %w", err)
	}
	defer src.Close()

	if *writeManifestPtr != "" {
		path, err := writeManifest(cfg, src, *writeManifestPtr)
		if err != nil {
			return fmt.Errorf("ошибка записи манифеста: %w", err)
		}
		fmt.Printf("[+++] Успех! Манифест сохранен: %s\n", path)
		return nil
	}

	opts, err := loadOptions(cfg, src.PageCount(), manifest)
	if err != nil {
		return fmt.Errorf("ошибка расчета длительностей: %w", err)
	}
	chooseEncoder(cfg)
	output := outputPath(cfg, inputName)

	fmt.Println("--- [PROJECT: CINEREEL] ---")
	fmt.Printf("[*] Источник: %s | Сцен: %d\n", inputName, src.PageCount())
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | Переход: %s %.2fs | Камера: %s | Палитра: %s\n",
		cfg.Width, cfg.Height, cfg.FPS, cfg.TransitionType, cfg.FadeDuration, cfg.CameraMode, cfg.Palette)
	fmt.Printf("[*] Выход: %s\n", output)
	fmt.Println("-----------------------------")

	scenes, err := source.LoadScenes(ctx, src, opts)
	if err != nil {
		return fmt.Errorf("ошибка загрузки сцен: %w", err)
	}

	project := engine.NewVideoProject(cfg, log)
	project.Progress = func(done, total int) {
		if done%cfg.FPS == 0 || done == total {
			fmt.Printf("\r[>] Кадры: %d/%d", done, total)
			if done == total {
				fmt.Println()
			}
		}
	}

	res, err := project.Run(ctx, director.NewTimeline(scenes, cfg.Style()), output)
	if err != nil {
		log.Error("render failed", zap.Error(err))
		return fmt.Errorf("ошибка проекта: %w", err)
	}

	if cfg.ShowStats {
		fmt.Print(res.Report(cfg.BuildVersion))
		if err := res.AppendBenchmark("benchmark.log", cfg.BuildVersion, inputName); err != nil {
			fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
		}
	}

	if *verifyPtr {
		verify(res)
	}

	fmt.Printf("[+++] Успех! Результат: %s (%d кадров, %.2fs)\n", res.Path, res.FrameCount, res.TotalDurationSeconds)
	return nil
}

// applyFlags copies the flags given on the command line over cfg.
func applyFlags(cfg *config.Config) error {
	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = *widthPtr
		case "height":
			cfg.Height = *heightPtr
		case "fps":
			cfg.FPS = *fpsPtr
		case "scene-duration":
			cfg.SceneDuration = *sceneDurPtr
		case "transition":
			var kind config.TransitionKind
			if kind, err = config.ParseTransition(*transitionPtr); err == nil {
				cfg.TransitionType = kind
			}
		case "fade":
			cfg.FadeDuration = *fadePtr
		case "feather":
			cfg.FeatherPx = *featherPtr
		case "camera":
			cfg.CameraMode = config.CameraMode(*cameraPtr)
		case "zoom-end":
			cfg.ZoomEnd = *zoomEndPtr
		case "pan":
			cfg.PanDirection = config.PanDirection(*panPtr)
		case "palette":
			cfg.Palette = *palettePtr
		case "workers":
			cfg.Workers = *workersPtr
		case "sink":
			cfg.Sink = config.SinkKind(*sinkPtr)
		case "encoder":
			cfg.VideoEncoder = *encoderPtr
		case "quality":
			cfg.Quality = *qualityPtr
		case "dpi":
			cfg.DPI = *dpiPtr
		case "log-level":
			cfg.LogLevel = *logLevelPtr
		case "metrics-addr":
			cfg.MetricsAddr = *metricsPtr
		case "stats":
			cfg.ShowStats = *statsPtr
		case "output":
			cfg.OutputVideo = *outputPtr
		}
	})
	if err != nil {
		return err
	}
	if err := cfg.ApplyPreset(*presetPtr); err != nil {
		return err
	}
	return cfg.Validate()
}

func loadManifest(path string) (*director.Manifest, error) {
	if path == "latest" {
		latest, err := director.FindLatestManifest(manifestDir)
		if err != nil {
			return nil, err
		}
		path = latest
		fmt.Printf("[*] Выбран манифест: %s\n", path)
	}
	m, err := director.ReadManifest(path)
	if err != nil {
		return nil, err
	}
	m.ResolveInputs(path)
	return m, nil
}

// openSource picks the scene source: demo scenes, manifest inputs, a PDF or
// an image directory, in that order.
func openSource(m *director.Manifest) (source.Source, string, error) {
	if *demoPtr > 0 {
		return source.NewPatternSource(*demoPtr, 1920, 1080, "cinereel"), "demo", nil
	}

	if m != nil {
		paths := make([]string, len(m.Scenes))
		for i, s := range m.Scenes {
			if s.Input == "" {
				return nil, "", fmt.Errorf("scene %d has no input", i)
			}
			paths[i] = s.Input
		}
		return source.NewImageSourceFromPaths(paths), *manifestPtr, nil
	}

	inputPath := *inputPtr
	if inputPath == "" {
		latest, err := system.FindLatest(pdfDir, system.PDFExtensions)
		if err != nil {
			return nil, "", fmt.Errorf("%w. Положите PDF в %s/", err, pdfDir)
		}
		inputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", inputPath)
	}

	if system.HasExtension(inputPath, system.PDFExtensions) {
		src, err := source.NewFitzPDFSource(inputPath)
		return src, inputPath, err
	}
	src, err := source.NewImageSource(inputPath)
	return src, inputPath, err
}

// loadOptions resolves per-scene durations and styles.
func loadOptions(cfg *config.Config, n int, m *director.Manifest) (source.LoadOptions, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = system.RecommendWorkers(cfg.Width, cfg.Height)
	}
	opts := source.LoadOptions{
		DPI:      cfg.DPI,
		Duration: cfg.SceneDuration,
		Style:    director.StyleTag(*stylePtr),
		Workers:  workers,
	}
	if opts.Style == "" {
		opts.Style = director.StyleCinematic
	}

	if m != nil {
		opts.Durations = m.Durations(cfg.SceneDuration)
		for _, s := range m.Scenes {
			opts.Styles = append(opts.Styles, s.Style)
		}
		return opts, nil
	}

	if *totalPtr > 0 {
		seed := *seedPtr
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		durations, err := director.SpreadDurations(*totalPtr, n, cfg.FadeDuration, seed)
		if err != nil {
			return opts, err
		}
		opts.Durations = durations
		fmt.Printf("[*] Длительность ролика: %.2fs, сцены от %.2fs до %.2fs\n", *totalPtr, minOf(durations), maxOf(durations))
	}
	return opts, nil
}

func writeManifest(cfg *config.Config, src source.Source, path string) (string, error) {
	imgs, ok := src.(*source.ImageSource)
	if !ok {
		return "", fmt.Errorf("манифест можно записать только для изображений")
	}
	if path == "auto" {
		path = director.GenerateManifestPath(manifestDir)
	}

	opts, err := loadOptions(cfg, imgs.PageCount(), nil)
	if err != nil {
		return "", err
	}

	m := &director.Manifest{
		Style: &director.ManifestStyle{
			FPS:                cfg.FPS,
			Transition:         string(cfg.TransitionType),
			TransitionDuration: director.Seconds(cfg.FadeDuration),
			Camera:             string(cfg.CameraMode),
			Palette:            cfg.Palette,
		},
	}
	base := filepath.Dir(path)
	for i, p := range imgs.Paths() {
		input := p
		if rel, err := filepath.Rel(base, p); err == nil {
			input = rel
		}
		d := cfg.SceneDuration
		if i < len(opts.Durations) {
			d = opts.Durations[i]
		}
		scene := director.ManifestScene{Input: input, Duration: director.Seconds(d), Style: opts.Style}
		m.Scenes = append(m.Scenes, scene)
	}
	return path, director.WriteManifest(m, path)
}

func chooseEncoder(cfg *config.Config) {
	if cfg.VideoEncoder != "auto" {
		return
	}
	cfg.VideoEncoder = system.GetBestH264Encoder()
	if cfg.VideoEncoder != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
	}

	quality := 0
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "quality" {
			quality = *qualityPtr
		}
	})
	if quality == 0 {
		switch cfg.VideoEncoder {
		case "h264_videotoolbox":
			quality = 75 // Хорошее качество для VideoToolbox
		case "h264_nvenc":
			quality = 28 // Эквивалент CRF для NVENC
		default:
			quality = 23 // Стандартный CRF для x264
		}
	}
	cfg.Quality = quality
}

func outputPath(cfg *config.Config, inputName string) string {
	if cfg.Sink == config.SinkAuto && !system.HasFFmpeg() &&
		(cfg.OutputVideo == "" || video.KindForPath(cfg.OutputVideo) == config.SinkFFmpeg) {
		fmt.Println("[!] ffmpeg не найден, пишу MJPEG AVI")
		cfg.Sink = config.SinkMJPEG
		if cfg.OutputVideo != "" {
			cfg.OutputVideo = strings.TrimSuffix(cfg.OutputVideo, filepath.Ext(cfg.OutputVideo)) + ".avi"
		}
	}
	if cfg.OutputVideo != "" {
		return cfg.OutputVideo
	}

	ext := ".mp4"
	switch cfg.Sink {
	case config.SinkMJPEG:
		ext = ".avi"
	case config.SinkFrames:
		ext = ""
	}

	baseName := filepath.Base(inputName)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s%s", cleanName, timestamp, ext))
}

func verify(res *engine.Result) {
	if video.KindForPath(res.Path) != config.SinkFFmpeg || !system.HasFFmpeg() {
		fmt.Println("[!] Проверка пропущена: нужен ffprobe и видеофайл")
		return
	}
	info, err := video.Probe(res.Path)
	if err != nil {
		fmt.Printf("[!] Проверка не удалась: %v\n", err)
		return
	}
	fmt.Printf("[*] ffprobe: %s %dx%d @ %.2f FPS, %d кадров, %.2fs\n",
		info.Codec, info.Width, info.Height, info.FPS, info.Frames, info.Duration)
	if info.Frames > 0 && info.Frames != res.FrameCount {
		fmt.Printf("[!] Ожидалось %d кадров, в файле %d\n", res.FrameCount, info.Frames)
	}
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = min(m, x)
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = max(m, x)
	}
	return m
}
