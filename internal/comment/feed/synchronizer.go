package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/tree"
)

const DefaultPollInterval = 30 * time.Second

var ErrAlreadyRunning = errors.New("synchronizer already running")

// Store is the read side of the remote comment store.
type Store interface {
	ListComments(ctx context.Context, key model.PageKey) (model.Page, error)
	HasNewComments(ctx context.Context, key model.PageKey, since int64) (bool, error)
}

// Signals delivers "book changed" hints. The channel is closed when ctx is
// done or the subscription breaks.
type Signals interface {
	Subscribe(ctx context.Context, bookID string) (<-chan struct{}, error)
}

type Option func(*Synchronizer)

func WithInterval(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Synchronizer) { s.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

func WithSignals(src Signals) Option {
	return func(s *Synchronizer) { s.signals = src }
}

// Synchronizer keeps one comment page in step with the store. All state
// transitions happen on the goroutine running Run; fetches and probes run
// aside and report back stamped with the generation that started them.
type Synchronizer struct {
	store    Store
	interval time.Duration
	log      zerolog.Logger
	metrics  *Metrics
	signals  Signals

	keyCh     chan struct{}
	refreshCh chan struct{}
	results   chan fetchResult
	probes    chan probeResult
	updates   chan Snapshot

	refreshReq atomic.Uint64
	running    atomic.Bool

	mu      sync.RWMutex
	wantKey model.PageKey
	snap    Snapshot
}

type fetchResult struct {
	gen  uint64
	page model.Page
	err  error
}

type probeResult struct {
	gen    uint64
	seq    uint64
	hasNew bool
	err    error
}

// loop holds the state owned by Run.
type loop struct {
	key       model.PageKey
	gen       uint64
	state     State
	page      model.Page
	tick      uint64
	stale     bool
	refreshes uint64
	err       error

	fetching    bool
	cancelFetch context.CancelFunc
	probing     bool
	probeSeq    uint64
	// a push hint arrived while a fetch was in flight
	signalled bool
}

func New(store Store, key model.PageKey, opts ...Option) (*Synchronizer, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s := &Synchronizer{
		store:     store,
		interval:  DefaultPollInterval,
		log:       zlog.Logger,
		keyCh:     make(chan struct{}, 1),
		refreshCh: make(chan struct{}, 1),
		results:   make(chan fetchResult),
		probes:    make(chan probeResult),
		updates:   make(chan Snapshot, 1),
		wantKey:   key,
		snap:      Snapshot{Key: key, State: Idle},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	s.log = s.log.With().Str("component", "comment-feed").Logger()
	return s, nil
}

// SetKey switches the live page. It may be called from any goroutine; the
// last key set before Run picks it up wins.
func (s *Synchronizer) SetKey(key model.PageKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.wantKey = key
	s.mu.Unlock()
	poke(s.keyCh)
	return nil
}

// Key returns the most recently requested key.
func (s *Synchronizer) Key() model.PageKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wantKey
}

// Refresh bumps the refresh counter, forcing an unconditional refetch of
// the live page.
func (s *Synchronizer) Refresh() {
	s.refreshReq.Add(1)
	poke(s.refreshCh)
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Updates carries the latest snapshot after every transition. Only the most
// recent value is buffered.
func (s *Synchronizer) Updates() <-chan Snapshot {
	return s.updates
}

// Run drives the synchronizer until ctx is cancelled. Cancelling ctx is the
// unmount: the poll timer stops and in-flight results are ignored.
func (s *Synchronizer) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	l := &loop{refreshes: s.refreshReq.Load()}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var (
		signals     <-chan struct{}
		stopSignals context.CancelFunc = func() {}
	)
	defer func() { stopSignals() }()

	switchBook := func(bookID string) {
		stopSignals()
		signals, stopSignals = s.subscribe(ctx, bookID)
	}

	s.switchKey(ctx, l, s.Key())
	switchBook(l.key.BookID)

	for {
		select {
		case <-ctx.Done():
			if l.cancelFetch != nil {
				l.cancelFetch()
			}
			l.state = Idle
			s.publish(l)
			s.log.Debug().Str("key", l.key.String()).Msg("feed stopped")
			return nil

		case <-s.keyCh:
			key := s.Key()
			if key == l.key {
				continue
			}
			prevBook := l.key.BookID
			s.switchKey(ctx, l, key)
			ticker.Reset(s.interval)
			if key.BookID != prevBook {
				switchBook(key.BookID)
			}

		case <-s.refreshCh:
			n := s.refreshReq.Load()
			if n == l.refreshes {
				continue
			}
			l.refreshes = n
			s.startFetch(ctx, l, "refresh")
			s.publish(l)

		case <-ticker.C:
			s.onTick(ctx, l)

		case _, ok := <-signals:
			if !ok {
				s.log.Warn().Str("book_id", l.key.BookID).Msg("signal subscription closed, polling only")
				signals = nil
				continue
			}
			s.onSignal(ctx, l)

		case r := <-s.results:
			s.onFetchResult(ctx, l, r)

		case r := <-s.probes:
			s.onProbeResult(ctx, l, r)
		}
	}
}

func (s *Synchronizer) switchKey(ctx context.Context, l *loop, key model.PageKey) {
	l.key = key
	l.tick = 0
	l.stale = false
	l.err = nil
	l.probing = false
	l.signalled = false
	l.page = model.Page{Key: key, Comments: []model.Comment{}}
	s.startFetch(ctx, l, "key")
	s.publish(l)
}

// startFetch supersedes whatever fetch is in flight.
func (s *Synchronizer) startFetch(ctx context.Context, l *loop, reason string) {
	if l.cancelFetch != nil {
		l.cancelFetch()
	}
	l.gen++
	l.state = Loading
	l.fetching = true
	l.signalled = false

	fctx, cancel := context.WithCancel(ctx)
	l.cancelFetch = cancel

	gen, key := l.gen, l.key
	s.metrics.Fetches.WithLabelValues(reason).Inc()
	s.log.Debug().Str("key", key.String()).Uint64("gen", gen).Str("reason", reason).Msg("fetching comment page")

	go func() {
		p, err := s.store.ListComments(fctx, key)
		if err == nil {
			err = tree.Validate(p)
		}
		select {
		case s.results <- fetchResult{gen: gen, page: p, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *Synchronizer) startProbe(ctx context.Context, l *loop) {
	l.probing = true
	l.probeSeq++
	gen, seq, key, since := l.gen, l.probeSeq, l.key, l.page.Version
	s.metrics.Probes.Inc()

	go func() {
		hasNew, err := s.store.HasNewComments(ctx, key, since)
		select {
		case s.probes <- probeResult{gen: gen, seq: seq, hasNew: hasNew, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *Synchronizer) onFetchResult(ctx context.Context, l *loop, r fetchResult) {
	if r.gen != l.gen {
		s.metrics.StaleDropped.Inc()
		s.log.Debug().Uint64("gen", r.gen).Uint64("live_gen", l.gen).Msg("dropping stale page")
		return
	}

	l.fetching = false
	if l.cancelFetch != nil {
		l.cancelFetch()
		l.cancelFetch = nil
	}

	if r.err != nil {
		l.err = r.err
		s.metrics.FetchErrors.Inc()
		s.log.Warn().Err(r.err).Str("key", l.key.String()).Msg("comment page fetch failed")
		if l.signalled {
			s.startFetch(ctx, l, "retry")
		}
		s.publish(l)
		return
	}

	l.page = r.page
	l.page.Key = l.key
	l.state = Ready
	l.stale = false
	l.err = nil

	if l.signalled {
		s.startFetch(ctx, l, "signal")
	}
	s.publish(l)
}

func (s *Synchronizer) onProbeResult(ctx context.Context, l *loop, r probeResult) {
	if r.seq == l.probeSeq {
		l.probing = false
	}
	if r.gen != l.gen {
		s.metrics.StaleDropped.Inc()
		return
	}

	if r.err != nil {
		s.log.Debug().Err(r.err).Str("key", l.key.String()).Msg("probe failed")
		return
	}
	if !r.hasNew || l.state != Ready || l.fetching {
		return
	}

	s.metrics.ProbeHits.Inc()
	l.stale = true
	s.startFetch(ctx, l, "probe")
	s.publish(l)
}

func (s *Synchronizer) onTick(ctx context.Context, l *loop) {
	l.tick++
	s.metrics.Ticks.Inc()

	switch {
	case l.fetching || l.probing:
	case l.state == Ready:
		s.startProbe(ctx, l)
	case l.state == Loading:
		// the last fetch failed and nothing is in flight
		s.startFetch(ctx, l, "retry")
	}
	s.publish(l)
}

func (s *Synchronizer) onSignal(ctx context.Context, l *loop) {
	if l.fetching {
		l.signalled = true
		return
	}
	reason := "retry"
	if l.state == Ready {
		l.stale = true
		reason = "signal"
	}
	// a failed fetch is retried now instead of on the next tick
	s.startFetch(ctx, l, reason)
	s.publish(l)
}

func (s *Synchronizer) subscribe(ctx context.Context, bookID string) (<-chan struct{}, context.CancelFunc) {
	if s.signals == nil {
		return nil, func() {}
	}
	sctx, cancel := context.WithCancel(ctx)
	ch, err := s.signals.Subscribe(sctx, bookID)
	if err != nil {
		cancel()
		s.log.Warn().Err(err).Str("book_id", bookID).Msg("signal subscribe failed, polling only")
		return nil, func() {}
	}
	return ch, cancel
}

func (s *Synchronizer) publish(l *loop) {
	snap := Snapshot{
		Key:        l.key,
		State:      l.state,
		Page:       l.page,
		Tick:       l.tick,
		Stale:      l.stale,
		Refreshes:  l.refreshes,
		Generation: l.gen,
		Err:        l.err,
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}

func poke(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
