package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// FramePool переиспользует кадровые буферы *image.RGBA, чтобы рендер
// не аллоцировал мегабайты на каждый кадр. Буферы группируются по размеру.
type FramePool struct {
	mu    sync.RWMutex
	pools map[image.Point]*sync.Pool

	allocated atomic.Int64
}

func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[image.Point]*sync.Pool)}
}

// Get возвращает буфер w×h с началом в (0,0). Содержимое не очищается.
func (p *FramePool) Get(w, h int) *image.RGBA {
	key := image.Pt(w, h)
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					p.allocated.Add(1)
					return image.NewRGBA(image.Rect(0, 0, key.X, key.Y))
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

// Put возвращает буфер в пул. Буферы чужих размеров отбрасываются.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect.Size()]
	p.mu.RUnlock()

	if exists && img.Rect.Min == (image.Point{}) {
		pool.Put(img)
	}
}

// Allocated is the number of buffers the pool has ever created.
func (p *FramePool) Allocated() int64 {
	return p.allocated.Load()
}
