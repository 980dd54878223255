package notify

import (
	"context"
	"sync"
)

// Hub is an in-process Publisher and subscription source, used when the
// store and its watchers share a process.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

func (h *Hub) Publish(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[bookID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, bookID string) (<-chan struct{}, error) {
	in := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[bookID] == nil {
		h.subs[bookID] = make(map[chan struct{}]struct{})
	}
	h.subs[bookID][in] = struct{}{}
	h.mu.Unlock()

	out := make(chan struct{}, 1)
	go func() {
		forward(ctx, in, out)
		h.mu.Lock()
		delete(h.subs[bookID], in)
		if len(h.subs[bookID]) == 0 {
			delete(h.subs, bookID)
		}
		h.mu.Unlock()
	}()
	return out, nil
}
