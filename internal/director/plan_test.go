package director

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/cinereel/internal/config"
)

func newTestTimeline(durations []float64, td float64, fps int) *Timeline {
	scenes := make([]Scene, len(durations))
	for i, d := range durations {
		scenes[i] = Scene{Duration: d, Style: StyleCinematic}
	}
	return NewTimeline(scenes, config.Style{
		FPS:                fps,
		TransitionKind:     config.TransitionCrossfade,
		TransitionDuration: td,
	})
}

func TestBuildPlanFourScenesWithCrossfade(t *testing.T) {
	plan, err := BuildPlan(newTestTimeline([]float64{4, 4, 4, 4}, 1, 24))
	require.NoError(t, err)

	assert.Equal(t, 456, plan.TotalFrames)
	assert.Len(t, plan.Tasks, 456)
	assert.Equal(t, 24, plan.TransitionFrames)
	assert.Equal(t, []int{96, 96, 96, 96}, plan.SceneFrames)
	assert.Equal(t, 3*24, plan.CountKind(TaskTransition))
	assert.Equal(t, 4*96, plan.CountKind(TaskPlain))
	assert.InDelta(t, 19.0, plan.Duration(), 1e-9)
}

func TestBuildPlanSingleSceneHasNoTransitions(t *testing.T) {
	tl := newTestTimeline([]float64{5}, 0, 24)
	tl.Transition.Kind = ""

	plan, err := BuildPlan(tl)
	require.NoError(t, err)

	assert.Equal(t, 120, plan.TotalFrames)
	assert.Zero(t, plan.CountKind(TaskTransition))
	for i, task := range plan.Tasks {
		assert.Equal(t, i, task.Local)
		assert.Equal(t, 120, task.LocalCount)
	}
}

func TestBuildPlanRejectsTransitionAsLongAsScene(t *testing.T) {
	_, err := BuildPlan(newTestTimeline([]float64{4, 2, 4}, 2, 24))
	require.ErrorIs(t, err, ErrInvalidTimeline)

	var te *TimelineError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Scene)
}

func TestBuildPlanInvalidTimelines(t *testing.T) {
	tests := []struct {
		name string
		tl   *Timeline
	}{
		{"empty", newTestTimeline(nil, 0, 24)},
		{"zero fps", newTestTimeline([]float64{1}, 0, 0)},
		{"negative transition", newTestTimeline([]float64{1, 1}, -0.5, 24)},
		{"nan duration", newTestTimeline([]float64{1, math.NaN()}, 0, 24)},
		{"infinite duration", newTestTimeline([]float64{math.Inf(1)}, 0, 24)},
		{"zero duration", newTestTimeline([]float64{0}, 0, 24)},
		{"shorter than a frame", newTestTimeline([]float64{0.01}, 0, 24)},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := BuildPlan(tt.tl)
			assert.ErrorIs(t, err, ErrInvalidTimeline)
			assert.Nil(t, plan)
		})
	}

	bad := newTestTimeline([]float64{3, 3}, 1, 24)
	bad.Transition.Kind = "spin"
	_, err := BuildPlan(bad)
	assert.ErrorIs(t, err, ErrInvalidTimeline)
}

func TestBuildPlanIndicesAreContiguous(t *testing.T) {
	plan, err := BuildPlan(newTestTimeline([]float64{2.3, 1.7, 3.1, 0.9}, 0.4, 30))
	require.NoError(t, err)

	for i, task := range plan.Tasks {
		require.Equal(t, i, task.Index)
	}
}

func TestBuildPlanTotalMatchesDuration(t *testing.T) {
	cases := []struct {
		durations []float64
		td        float64
		fps       int
	}{
		{[]float64{4, 4, 4, 4}, 1, 24},
		{[]float64{2.3, 1.7, 3.1}, 0.4, 30},
		{[]float64{1.01, 1.02, 1.03, 1.04, 1.05}, 0.51, 25},
		{[]float64{0.5, 0.5}, 0.2, 60},
		{[]float64{7}, 0, 12},
		{[]float64{3, 3, 3}, 0, 24},
	}

	for _, c := range cases {
		tl := newTestTimeline(c.durations, c.td, c.fps)
		plan, err := BuildPlan(tl)
		require.NoError(t, err)

		want := int(math.Round(float64(c.fps) * tl.TotalDuration()))
		assert.Equal(t, want, plan.TotalFrames)
		assert.Len(t, plan.Tasks, want)

		sum := (len(c.durations) - 1) * plan.TransitionFrames
		for _, n := range plan.SceneFrames {
			sum += n
		}
		assert.Equal(t, want, sum)
	}
}

func TestBuildPlanTransitionFactors(t *testing.T) {
	plan, err := BuildPlan(newTestTimeline([]float64{2, 2}, 0.25, 12))
	require.NoError(t, err)
	require.Equal(t, 3, plan.TransitionFrames)

	var factors []float64
	for _, task := range plan.Tasks {
		if task.Kind != TaskTransition {
			continue
		}
		assert.Equal(t, 0, task.From)
		assert.Equal(t, 1, task.To)
		assert.Greater(t, task.Factor, 0.0)
		assert.Less(t, task.Factor, 1.0)
		factors = append(factors, task.Factor)
	}
	assert.InDeltaSlice(t, []float64{0.25, 0.5, 0.75}, factors, 1e-12)

	// the window sits between the last plain frame of scene 0 and the first of scene 1
	assert.Equal(t, TaskPlain, plan.Tasks[23].Kind)
	assert.Equal(t, 23, plan.Tasks[23].Local)
	assert.Equal(t, TaskTransition, plan.Tasks[24].Kind)
	assert.Equal(t, 1, plan.Tasks[27].Scene)
	assert.Equal(t, 0, plan.Tasks[27].Local)
}

func TestBuildPlanZeroTransitionFramesAbutScenes(t *testing.T) {
	// 0.01s at 24 fps rounds to no transition frames
	plan, err := BuildPlan(newTestTimeline([]float64{1, 1}, 0.01, 24))
	require.NoError(t, err)

	assert.Zero(t, plan.TransitionFrames)
	assert.Zero(t, plan.CountKind(TaskTransition))
	assert.Equal(t, 0, plan.Tasks[23].Scene)
	assert.Equal(t, 1, plan.Tasks[24].Scene)
}

func TestBuildPlanIsDeterministic(t *testing.T) {
	tl := newTestTimeline([]float64{1.3, 2.9, 0.7}, 0.3, 29)

	first, err := BuildPlan(tl)
	require.NoError(t, err)
	second, err := BuildPlan(tl)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDominantStyle(t *testing.T) {
	tl := &Timeline{Scenes: []Scene{
		{Style: StyleAnime},
		{Style: StyleCyberpunk},
		{Style: StyleCyberpunk},
		{Style: StyleAnime},
	}}
	assert.Equal(t, StyleAnime, tl.DominantStyle())

	tl.Scenes = append(tl.Scenes, Scene{Style: StyleCyberpunk})
	assert.Equal(t, StyleCyberpunk, tl.DominantStyle())
	assert.Equal(t, "cyberpunk", tl.DominantStyle().DefaultPalette())
	assert.Equal(t, "warm", StyleTag("").DefaultPalette())
}
