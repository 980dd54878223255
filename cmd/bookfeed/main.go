package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/client"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/feed"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/notify"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/tree"
	"github.com/MyNameIsWhaaat/bookcomments/internal/config"
	"github.com/MyNameIsWhaaat/bookcomments/internal/logger"
)

func main() {
	cfg, err := config.LoadFeed(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	closer, err := logger.Setup(cfg.Log, logger.Console())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closer.Close()

	if err := run(cfg, os.Stdin, os.Stdout); err != nil {
		zlog.Logger.Error().Err(err).Msg("bookfeed stopped")
		os.Exit(1)
	}
}

func run(cfg config.Feed, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key := model.PageKey{BookID: cfg.BookID, Page: cfg.Page, PageSize: cfg.PageSize}
	store := client.New(cfg.StoreURL)
	gate := client.NewGate(store, cfg.HealthInterval)

	opts := []feed.Option{feed.WithInterval(cfg.PollInterval)}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		opts = append(opts, feed.WithSignals(notify.NewRedis(rdb)))
	}

	syncer, err := feed.New(store, key, opts...)
	if err != nil {
		return err
	}

	var viewer *model.Viewer
	if cfg.Username != "" {
		viewer = &model.Viewer{Username: cfg.Username, Admin: cfg.Admin}
	}
	session := feed.NewSession(store, gate, syncer, viewer)

	ui := &screen{out: out, renderer: tree.NewRenderer(cfg.Color), viewer: viewer}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return syncer.Run(gctx) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case snap := <-syncer.Updates():
				ui.show(snap)
			}
		}
	})

	lines := make(chan string)
	go readLines(gctx.Done(), in, lines)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return errQuit
				}
				c, err := parseCommand(line)
				if err != nil {
					ui.note(err.Error())
					continue
				}
				msg, err := execute(gctx, syncer, session, c)
				switch {
				case errors.Is(err, errQuit):
					return errQuit
				case err != nil:
					ui.note(describe(err))
				case msg != "":
					ui.note(msg)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

// readLines stops at EOF or once done is closed. A read already blocked on
// in still holds the goroutine until it returns.
func readLines(done <-chan struct{}, in io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case lines <- sc.Text():
		case <-done:
			return
		}
	}
}

// screen serialises writes from the render and command goroutines.
type screen struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *tree.Renderer
	viewer   *model.Viewer
}

func (s *screen) show(snap feed.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.out, "\n== book %s, page %d (size %d) ==\n", snap.Key.BookID, snap.Key.Page, snap.Key.PageSize)
	switch snap.State {
	case feed.Ready:
		if err := s.renderer.Render(s.out, snap.Page, s.viewer); err != nil {
			zlog.Logger.Debug().Err(err).Msg("render failed")
		}
	case feed.Loading:
		fmt.Fprintln(s.out, "loading...")
	}
}

func (s *screen) note(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, "> "+msg)
}
