package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Report formats the performance summary printed with -stats.
func (r *Result) Report(build string) string {
	fps := 0.0
	if s := r.Stats.Total.Seconds(); s > 0 {
		fps = float64(r.FrameCount) / s
	}
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Run: %s\n"+
			"Output: %s (%d frames, %.2fs, palette %s)\n"+
			"Total Time: %.2fs\n"+
			"Preparation: %.2fs\n"+
			"Rendering + Encoding: %.2fs\n"+
			"Finalize: %.2fs\n"+
			"Workers: %d | Frame buffers: %d\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		build, r.RunID, r.Path, r.FrameCount, r.TotalDurationSeconds, r.Palette,
		r.Stats.Total.Seconds(), r.Stats.Prepare.Seconds(), r.Stats.Render.Seconds(), r.Stats.Finalize.Seconds(),
		r.Stats.Workers, r.Stats.Allocated, fps,
	)
}

// AppendBenchmark adds a one-line summary of the run to logPath.
func (r *Result) AppendBenchmark(logPath, build, input string) error {
	fps := 0.0
	if s := r.Stats.Total.Seconds(); s > 0 {
		fps = float64(r.FrameCount) / s
	}
	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Frames: %d | Total: %.2fs | Render: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		build,
		filepath.Base(input),
		r.FrameCount,
		r.Stats.Total.Seconds(),
		r.Stats.Render.Seconds(),
		fps,
	)

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(logEntry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
