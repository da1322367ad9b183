package engine

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ivlev/cinereel/internal/director"
	"github.com/ivlev/cinereel/internal/metrics"
	"github.com/ivlev/cinereel/internal/video"
)

// produce renders plan on a pool of workers and hands frames to sink in
// index order.
//
// A window of `workers` slots is taken in task order and given back only
// when a frame reaches the sink, so frames being rendered plus frames
// waiting in the reorder heap never exceed the worker count.
func (p *VideoProject) produce(ctx context.Context, plan *director.RenderPlan, r *frameRenderer, sink video.FrameSink, workers int) error {
	window := semaphore.NewWeighted(int64(workers))
	results := make(chan *video.Frame, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(results)
		return dispatch(gctx, plan, r, window, results)
	})
	g.Go(func() error {
		return p.consume(gctx, plan.TotalFrames, sink, window, results)
	})
	return g.Wait()
}

// dispatch starts one worker per task once a window slot is free.
// Cancellation is observed between tasks; a running task is finished and
// its frame dropped.
func dispatch(ctx context.Context, plan *director.RenderPlan, r *frameRenderer, window *semaphore.Weighted, results chan<- *video.Frame) error {
	w, wctx := errgroup.WithContext(ctx)

	for _, task := range plan.Tasks {
		if err := window.Acquire(wctx, 1); err != nil {
			break
		}
		w.Go(func() error {
			metrics.ActiveWorkers.Inc()
			start := time.Now()
			img := r.render(task)
			metrics.ActiveWorkers.Dec()
			metrics.FrameRenderDuration.Observe(time.Since(start).Seconds())
			metrics.FramesRenderedTotal.WithLabelValues(task.Kind.String()).Inc()

			select {
			case results <- &video.Frame{Index: task.Index, Image: img}:
				return nil
			case <-wctx.Done():
				r.pool.Put(img)
				return wctx.Err()
			}
		})
	}

	if err := w.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// consume owns the sink. Frames arrive in completion order and are held in
// a min-heap until their predecessor has been appended.
func (p *VideoProject) consume(ctx context.Context, total int, sink video.FrameSink, window *semaphore.Weighted, results <-chan *video.Frame) error {
	pending := &frameHeap{}
	next := 0
	defer metrics.ReorderBufferDepth.Set(0)

	for f := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Index < next {
			return &video.OrderError{Expected: next, Got: f.Index}
		}
		heap.Push(pending, f)

		for pending.Len() > 0 && (*pending)[0].Index == next {
			ready := heap.Pop(pending).(*video.Frame)
			if err := sink.Append(ready); err != nil {
				return err
			}
			p.Pool.Put(ready.Image)
			window.Release(1)
			next++
			if p.Progress != nil {
				p.Progress(next, total)
			}
		}
		metrics.ReorderBufferDepth.Set(float64(pending.Len()))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if next != total {
		return fmt.Errorf("%w: %d of %d frames reached the sink", video.ErrOutOfOrderFrame, next, total)
	}
	return nil
}

// frameHeap is a min-heap of frames keyed by index.
type frameHeap []*video.Frame

func (h frameHeap) Len() int           { return len(h) }
func (h frameHeap) Less(i, j int) bool { return h[i].Index < h[j].Index }
func (h frameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *frameHeap) Push(x any) { *h = append(*h, x.(*video.Frame)) }

func (h *frameHeap) Pop() any {
	old := *h
	n := len(old)
	f := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return f
}
