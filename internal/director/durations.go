package director

import (
	"fmt"
	"math/rand"
)

// SpreadDurations splits a target reel length over n scenes so that the
// output lasts exactly total seconds once the n-1 transition windows of td
// are added. Neighbouring scenes differ by at most ±15% before the final
// rescale, which keeps the pacing uneven without jumps. The same seed gives
// the same durations.
func SpreadDurations(total float64, n int, td float64, seed int64) ([]float64, error) {
	if n <= 0 {
		return nil, &TimelineError{Scene: -1, Reason: "no scenes"}
	}
	// Общая длительность всех клипов без окон переходов
	clips := total - float64(n-1)*td
	if clips <= float64(n)*td {
		return nil, &TimelineError{Scene: -1, Reason: fmt.Sprintf("%.2fs is too short for %d scenes with %.2fs transitions", total, n, td)}
	}

	base := clips / float64(n)
	r := rand.New(rand.NewSource(seed))

	durations := make([]float64, n)
	durations[0] = base * (1 + r.Float64()*0.3 - 0.15)
	for i := 1; i < n; i++ {
		durations[i] = durations[i-1] * (1 + r.Float64()*0.3 - 0.15)
		// клип не может быть короче перехода (с запасом)
		if durations[i] < td*1.1 {
			durations[i] = td * 1.1
		}
	}

	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	scale := clips / sum
	for i := range durations {
		durations[i] *= scale
		if durations[i] <= td {
			return nil, &TimelineError{Scene: i, Reason: "spread leaves a scene no longer than the transition"}
		}
	}

	return durations, nil
}
