// internal/migration/worker.go
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/codec"
	"github.com/rovshanmuradov/launchpad/internal/eventlistener"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

// Migrator performs a single migration.
type Migrator interface {
	Migrate(ctx context.Context, caller, mint solana.PublicKey, sink launchpad.GraduationSink) (*launchpad.MigrationRequest, error)
}

// Config controls retries and parallelism.
type Config struct {
	Authority       solana.PublicKey
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Concurrency     int
	QueueSize       int
}

// DefaultConfig returns the worker defaults for authority.
func DefaultConfig(authority solana.PublicKey) Config {
	return Config{
		Authority:       authority,
		MaxTries:        5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Concurrency:     4,
		QueueSize:       64,
	}
}

// LogFollower replays committed ledger records in order and keeps following
// the log. *eventlistener.Listener implements it.
type LogFollower interface {
	Run(ctx context.Context, after uint64, filter eventlistener.Filter, handle func(eventlistener.Record) error) error
}

// Outcome is the result of one migration attempt sequence.
type Outcome struct {
	Mint    solana.PublicKey
	Request *launchpad.MigrationRequest
	Skipped bool // already migrated
	Err     error
}

// Worker settles completed curves into a graduation sink. It is fed by
// CurveCompleted events, by completion records in the ledger log (see
// FollowLog) or by an explicit Sweep.
type Worker struct {
	migrator Migrator
	sink     launchpad.GraduationSink
	cfg      Config
	logger   *zap.Logger
	log      LogFollower

	queue chan solana.PublicKey

	mu       sync.Mutex
	inflight map[solana.PublicKey]struct{}
}

// NewWorker creates a Worker.
func NewWorker(migrator Migrator, sink launchpad.GraduationSink, cfg Config, logger *zap.Logger) (*Worker, error) {
	if migrator == nil || sink == nil {
		return nil, errors.New("migration worker requires a migrator and a sink")
	}
	if cfg.Authority.IsZero() {
		return nil, errors.New("migration worker requires the config authority")
	}
	def := DefaultConfig(cfg.Authority)
	if cfg.MaxTries == 0 {
		cfg.MaxTries = def.MaxTries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval * 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	return &Worker{
		migrator: migrator,
		sink:     sink,
		cfg:      cfg,
		logger:   logger.Named("migration"),
		queue:    make(chan solana.PublicKey, cfg.QueueSize),
		inflight: make(map[solana.PublicKey]struct{}),
	}, nil
}

// Subscribe queues every curve that completes on bus.
func (w *Worker) Subscribe(bus *events.Bus) events.Subscription {
	return bus.SubscribeFunc(events.CurveCompleted, func(ctx context.Context, e events.Event) error {
		ev, ok := e.(events.CurveCompletedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", e)
		}
		return w.Enqueue(ev.Mint)
	})
}

// Enqueue schedules mint for migration without blocking.
func (w *Worker) Enqueue(mint solana.PublicKey) error {
	select {
	case w.queue <- mint:
		w.logger.Debug("Migration queued", zap.String("mint", mint.String()))
		return nil
	default:
		w.logger.Warn("Migration queue full", zap.String("mint", mint.String()))
		return fmt.Errorf("migration queue full, %s not scheduled", mint)
	}
}

// FollowLog makes Run replay every completion recorded in the ledger log,
// from the first entry on, and then follow new ones. Bus delivery can drop
// events; the log keeps them, so a missed completion or a restart never
// leaves a curve unmigrated. Call before Run.
func (w *Worker) FollowLog(log LogFollower) {
	w.log = log
}

// Run consumes the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Migration worker started",
		zap.String("sink", w.sink.Destination().String()),
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Bool("follow_log", w.log != nil))

	var follow errgroup.Group
	if w.log != nil {
		follow.Go(func() error { return w.followLog(ctx) })
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for {
		select {
		case <-ctx.Done():
			err := g.Wait()
			if ferr := follow.Wait(); err == nil {
				err = ferr
			}
			w.logger.Info("Migration worker stopped")
			if err != nil {
				return err
			}
			return nil
		case mint := <-w.queue:
			g.Go(func() error {
				// Failures are logged by process and do not stop the worker.
				w.process(gctx, mint)
				return nil
			})
		}
	}
}

// followLog feeds completion records into the queue. Unlike Enqueue it waits
// for room, so a busy worker delays the replay instead of losing it.
func (w *Worker) followLog(ctx context.Context) error {
	filter := eventlistener.Filter{Names: []string{codec.NameComplete}}
	err := w.log.Run(ctx, 0, filter, func(rec eventlistener.Record) error {
		ev, ok := rec.Event.(codec.CompleteEvent)
		if !ok {
			return nil
		}
		select {
		case w.queue <- ev.Mint:
			w.logger.Debug("Completion read from ledger log",
				zap.String("mint", ev.Mint.String()),
				zap.Uint64("seq", rec.Seq))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil && ctx.Err() == nil {
		w.logger.Error("Ledger log follower stopped", zap.Error(err))
		return fmt.Errorf("follow ledger log: %w", err)
	}
	return nil
}

// Sweep migrates mints in parallel and returns one outcome per mint, in
// the input order.
func (w *Worker) Sweep(ctx context.Context, mints []solana.PublicKey) ([]Outcome, error) {
	out := make([]Outcome, len(mints))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i, mint := range mints {
		g.Go(func() error {
			out[i] = w.process(gctx, mint)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

func (w *Worker) process(ctx context.Context, mint solana.PublicKey) Outcome {
	if !w.claim(mint) {
		return Outcome{Mint: mint, Skipped: true}
	}
	defer w.release(mint)

	req, err := w.MigrateOne(ctx, mint)
	switch {
	case err == nil:
		return Outcome{Mint: mint, Request: req}
	case errors.Is(err, launchpad.ErrAlreadyMigrated):
		w.logger.Debug("Curve already migrated", zap.String("mint", mint.String()))
		return Outcome{Mint: mint, Skipped: true}
	default:
		w.logger.Error("Migration failed",
			zap.String("mint", mint.String()),
			zap.Error(err))
		return Outcome{Mint: mint, Err: err}
	}
}

// MigrateOne migrates mint, retrying transient failures. Protocol errors
// are final.
func (w *Worker) MigrateOne(ctx context.Context, mint solana.PublicKey) (*launchpad.MigrationRequest, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.cfg.InitialInterval
	policy.MaxInterval = w.cfg.MaxInterval

	notify := func(err error, d time.Duration) {
		w.logger.Warn("Migration attempt failed, retrying",
			zap.String("mint", mint.String()),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	operation := func() (*launchpad.MigrationRequest, error) {
		req, err := w.migrator.Migrate(ctx, w.cfg.Authority, mint, w.sink)
		if err == nil {
			return req, nil
		}
		if _, ok := launchpad.AsError(err); ok {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(w.cfg.MaxTries),
		backoff.WithNotify(notify))
}

func (w *Worker) claim(mint solana.PublicKey) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[mint]; busy {
		return false
	}
	w.inflight[mint] = struct{}{}
	return true
}

func (w *Worker) release(mint solana.PublicKey) {
	w.mu.Lock()
	delete(w.inflight, mint)
	w.mu.Unlock()
}
