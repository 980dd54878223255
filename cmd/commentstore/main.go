package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	commenthttp "github.com/MyNameIsWhaaat/bookcomments/internal/comment/handler/http"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/notify"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/service"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/storage"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/storage/inmemory"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/storage/postgres"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/storage/redisver"
	"github.com/MyNameIsWhaaat/bookcomments/internal/config"
	"github.com/MyNameIsWhaaat/bookcomments/internal/logger"
)

var connectStrategy = retry.Strategy{Attempts: 5, Delay: time.Second, Backoff: 2}

func main() {
	cfg, err := config.LoadStore(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	closer, err := logger.Setup(cfg.Log, nil)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("logger setup")
	}
	defer closer.Close()

	if err := run(cfg); err != nil {
		zlog.Logger.Error().Err(err).Msg("comment store stopped")
		os.Exit(1)
	}
}

func run(cfg config.Store) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := zlog.Logger

	var (
		repo     storage.Repository = inmemory.New()
		versions storage.Versions   = inmemory.NewVersions()
		opts                        = []service.Option{service.WithAdmins(cfg.Admins...)}
	)

	if cfg.DatabaseURL != "" {
		db, err := connectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		repo, versions = postgres.New(db), postgres.NewVersions(db)
		log.Info().Msg("using postgres storage")
	} else {
		log.Warn().Msg("DATABASE_URL not set, comments live in memory")
	}

	if cfg.RedisAddr != "" {
		rdb, err := connectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		versions = redisver.New(rdb)
		opts = append(opts, service.WithPublisher(notify.NewRedis(rdb)))
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis versions and notifications")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := service.New(repo, versions, opts...)
	h := commenthttp.New(svc, commenthttp.WithRegistry(reg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func connectPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	var db *sql.DB
	err := retry.Do(func() error {
		var err error
		db, err = postgres.Open(ctx, dsn)
		if err != nil {
			zlog.Logger.Warn().Err(err).Msg("postgres not ready")
		}
		return err
	}, connectStrategy)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func connectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	err := retry.Do(func() error {
		err := rdb.Ping(ctx).Err()
		if err != nil {
			zlog.Logger.Warn().Err(err).Msg("redis not ready")
		}
		return err
	}, connectStrategy)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
