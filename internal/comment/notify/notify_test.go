package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type source interface {
	Publisher
	Subscribe(ctx context.Context, bookID string) (<-chan struct{}, error)
}

func expectHint(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed early")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no hint delivered")
	}
}

func expectClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("subscription not closed after cancel")
		}
	}
}

func exercise(t *testing.T, src source) {
	ctx, cancel := context.WithCancel(context.Background())
	book := uuid.NewString()

	ch, err := src.Subscribe(ctx, book)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	other, err := src.Subscribe(ctx, book+"-other")
	if err != nil {
		t.Fatalf("subscribe other: %v", err)
	}

	if err := src.Publish(context.Background(), book); err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectHint(t, ch)

	select {
	case <-other:
		t.Fatalf("hint leaked to another book")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	expectClosed(t, ch)
}

func TestHub(t *testing.T) {
	h := NewHub()
	exercise(t, h)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		n := len(h.subs)
		h.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub kept subscriptions after cancel")
}

func TestHubCoalescesBursts(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := h.Subscribe(ctx, "b1")
	for i := 0; i < 10; i++ {
		_ = h.Publish(ctx, "b1")
	}
	expectHint(t, ch)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	exercise(t, NewRedis(rdb).WithLogger(zerolog.Nop()))
}
