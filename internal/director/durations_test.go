package director

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpreadDurations(t *testing.T) {
	const (
		total = 100.0
		td    = 0.5
		n     = 10
	)

	durations, err := SpreadDurations(total, n, td, 42)
	require.NoError(t, err)
	require.Len(t, durations, n)

	sum := 0.0
	for _, d := range durations {
		sum += d
		assert.Greater(t, d, td)
	}
	assert.InDelta(t, total, sum+float64(n-1)*td, 1e-9)

	for i := 1; i < n; i++ {
		variation := durations[i]/durations[i-1] - 1
		assert.LessOrEqual(t, math.Abs(variation), 0.1501, "scene %d", i)
	}

	again, err := SpreadDurations(total, n, td, 42)
	require.NoError(t, err)
	assert.Equal(t, durations, again)
}

func TestSpreadDurationsFeedsThePlan(t *testing.T) {
	durations, err := SpreadDurations(30, 5, 1, 7)
	require.NoError(t, err)

	plan, err := BuildPlan(newTestTimeline(durations, 1, 24))
	require.NoError(t, err)
	assert.Equal(t, 720, plan.TotalFrames)
}

func TestSpreadDurationsRejectsImpossibleTargets(t *testing.T) {
	_, err := SpreadDurations(10, 0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidTimeline)

	_, err = SpreadDurations(3, 3, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidTimeline)
}
