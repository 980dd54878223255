package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"
)

const DefaultHealthInterval = 5 * time.Second

type HealthChecker interface {
	Healthy(ctx context.Context) (bool, error)
}

// Gate blocks mutating calls until the store reports itself healthy. It
// retries at a fixed interval with no upper bound; only ctx stops it.
type Gate struct {
	checker  HealthChecker
	interval time.Duration
	log      zerolog.Logger
}

func NewGate(checker HealthChecker, interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	return &Gate{
		checker:  checker,
		interval: interval,
		log:      zlog.Logger.With().Str("component", "health-gate").Logger(),
	}
}

func (g *Gate) WithLogger(l zerolog.Logger) *Gate {
	g.log = l.With().Str("component", "health-gate").Logger()
	return g
}

func (g *Gate) Wait(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		ok, err := g.checker.Healthy(ctx)
		if ok && err == nil {
			if attempt > 1 {
				g.log.Info().Int("attempts", attempt).Msg("store is healthy again")
			}
			return nil
		}

		g.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", g.interval).
			Msg("store unhealthy, waiting")
		timer.Reset(g.interval)
	}
}
