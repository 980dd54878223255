package redisver

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestBumpAndCurrent(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	book := uuid.NewString()
	defer rdb.Del(ctx, keyPrefix+book)

	v := New(rdb)
	n, err := v.Current(ctx, book)
	if err != nil || n != 0 {
		t.Fatalf("expected 0 for unknown book, got %d (%v)", n, err)
	}
	if n, err = v.Bump(ctx, book); err != nil || n != 1 {
		t.Fatalf("expected 1 after bump, got %d (%v)", n, err)
	}
	if n, err = v.Current(ctx, book); err != nil || n != 1 {
		t.Fatalf("expected current 1, got %d (%v)", n, err)
	}
}
