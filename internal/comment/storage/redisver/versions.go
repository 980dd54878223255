package redisver

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bookcomments:version:"

// Versions keeps book change counters as plain redis integers.
type Versions struct {
	rdb redis.UniversalClient
}

func New(rdb redis.UniversalClient) *Versions {
	return &Versions{rdb: rdb}
}

func (v *Versions) Bump(ctx context.Context, bookID string) (int64, error) {
	return v.rdb.Incr(ctx, keyPrefix+bookID).Result()
}

func (v *Versions) Current(ctx context.Context, bookID string) (int64, error) {
	n, err := v.rdb.Get(ctx, keyPrefix+bookID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
