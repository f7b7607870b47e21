package events

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus. Each delivery runs on its own goroutine
// so Publish never waits on a consumer.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers []subscription
	wg       sync.WaitGroup
	closed   bool
}

type subscription struct {
	ctx context.Context
	h   Handler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, s := range b.handlers {
		if s.ctx.Err() != nil {
			continue
		}
		b.wg.Add(1)
		go func(s subscription) {
			defer b.wg.Done()
			s.h(s.ctx, e)
		}(s)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.handlers = append(b.handlers, subscription{ctx: ctx, h: h})
	return nil
}

// Flush blocks until every delivery started so far has returned.
func (b *MemoryBus) Flush() {
	b.wg.Wait()
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.handlers = nil
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
