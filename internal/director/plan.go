package director

import (
	"fmt"
	"math"
)

type TaskKind int

const (
	TaskPlain TaskKind = iota
	TaskTransition
)

func (k TaskKind) String() string {
	if k == TaskTransition {
		return "transition"
	}
	return "plain"
}

// FrameTask describes how to produce one output frame.
//
// Plain tasks use Scene, Local and LocalCount; transition tasks use From, To
// and Factor, where Factor lies strictly inside (0, 1).
type FrameTask struct {
	Index int
	Kind  TaskKind

	Scene      int
	Local      int
	LocalCount int

	From   int
	To     int
	Factor float64
}

// RenderPlan is the fully resolved schedule of a Timeline.
type RenderPlan struct {
	Tasks            []FrameTask
	SceneFrames      []int // plain frames per scene
	TransitionFrames int   // frames per transition window
	FPS              int
	TotalFrames      int
}

// Duration of the planned output in seconds.
func (p *RenderPlan) Duration() float64 {
	return float64(p.TotalFrames) / float64(p.FPS)
}

func (p *RenderPlan) CountKind(kind TaskKind) int {
	n := 0
	for _, t := range p.Tasks {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

// BuildPlan resolves a timeline into frame tasks.
//
// Every scene keeps round(d*fps) plain frames and a window of
// round(td*fps) transition frames is inserted between neighbours, so the
// output lasts Σd + (n-1)·td. Rounding drift is absorbed by the last scene.
func BuildPlan(tl *Timeline) (*RenderPlan, error) {
	if err := tl.Validate(); err != nil {
		return nil, err
	}

	fps := float64(tl.FPS)
	n := len(tl.Scenes)

	transitionFrames := 0
	if n > 1 {
		transitionFrames = int(math.Round(tl.Transition.Duration * fps))
	}

	sceneFrames := make([]int, n)
	sum := 0
	for i, s := range tl.Scenes {
		sceneFrames[i] = int(math.Round(s.Duration * fps))
		if sceneFrames[i] < 1 {
			return nil, &TimelineError{Scene: i, Reason: fmt.Sprintf("duration %.4fs is shorter than one frame at %d fps", s.Duration, tl.FPS)}
		}
		sum += sceneFrames[i]
	}
	sum += (n - 1) * transitionFrames

	target := int(math.Round(tl.TotalDuration() * fps))
	sceneFrames[n-1] += target - sum
	if sceneFrames[n-1] < 1 {
		return nil, &TimelineError{Scene: n - 1, Reason: "rounding leaves no frames for the last scene"}
	}

	plan := &RenderPlan{
		Tasks:            make([]FrameTask, 0, target),
		SceneFrames:      sceneFrames,
		TransitionFrames: transitionFrames,
		FPS:              tl.FPS,
		TotalFrames:      target,
	}

	index := 0
	for i := 0; i < n; i++ {
		for local := 0; local < sceneFrames[i]; local++ {
			plan.Tasks = append(plan.Tasks, FrameTask{
				Index:      index,
				Kind:       TaskPlain,
				Scene:      i,
				Local:      local,
				LocalCount: sceneFrames[i],
			})
			index++
		}
		if i == n-1 {
			break
		}
		for k := 1; k <= transitionFrames; k++ {
			plan.Tasks = append(plan.Tasks, FrameTask{
				Index:  index,
				Kind:   TaskTransition,
				From:   i,
				To:     i + 1,
				Factor: float64(k) / float64(transitionFrames+1),
			})
			index++
		}
	}

	return plan, nil
}
