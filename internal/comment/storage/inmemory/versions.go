package inmemory

import (
	"context"
	"sync"
)

type Versions struct {
	mu sync.Mutex
	v  map[string]int64
}

func NewVersions() *Versions {
	return &Versions{v: make(map[string]int64)}
}

func (vs *Versions) Bump(ctx context.Context, bookID string) (int64, error) {
	_ = ctx
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.v[bookID]++
	return vs.v[bookID], nil
}

func (vs *Versions) Current(ctx context.Context, bookID string) (int64, error) {
	_ = ctx
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.v[bookID], nil
}
