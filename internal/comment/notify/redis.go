package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"
)

const message = "changed"

// Redis publishes and subscribes over redis pub/sub.
type Redis struct {
	rdb redis.UniversalClient
	log zerolog.Logger
}

func NewRedis(rdb redis.UniversalClient) *Redis {
	return &Redis{
		rdb: rdb,
		log: zlog.Logger.With().Str("component", "notify-redis").Logger(),
	}
}

func (r *Redis) WithLogger(l zerolog.Logger) *Redis {
	r.log = l.With().Str("component", "notify-redis").Logger()
	return r
}

func (r *Redis) Publish(ctx context.Context, bookID string) error {
	return r.rdb.Publish(ctx, Channel(bookID), message).Err()
}

// Subscribe waits for the subscription to be confirmed before returning.
func (r *Redis) Subscribe(ctx context.Context, bookID string) (<-chan struct{}, error) {
	ps := r.rdb.Subscribe(ctx, Channel(bookID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", bookID, err)
	}

	in := make(chan struct{})
	go func() {
		defer close(in)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					r.log.Debug().Str("book_id", bookID).Msg("redis subscription closed")
					return
				}
				select {
				case in <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	out := make(chan struct{}, 1)
	go forward(ctx, in, out)
	return out, nil
}
