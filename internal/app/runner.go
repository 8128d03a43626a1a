// internal/app/runner.go
package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/api"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/eventlistener"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/history"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/migration"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
	"github.com/rovshanmuradov/launchpad/internal/wallet"
)

// Runner owns every long-lived component of the service.
type Runner struct {
	logger *zap.Logger
	cfg    *config.Config

	authority *wallet.Wallet
	store     *ledger.Memory
	bus       *events.Bus
	program   *launchpad.Program
	registry  *prometheus.Registry
	collector *metrics.Collector
	archive   storage.Storage
	worker    *migration.Worker
	server    *api.Server

	subs []events.Subscription
}

// NewRunner принимает cfg и logger
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{logger: logger, cfg: cfg}
}

// Program exposes the wired program.
func (r *Runner) Program() *launchpad.Program { return r.program }

// Authority returns the configured authority key.
func (r *Runner) Authority() solana.PublicKey { return r.authority.PublicKey }

// Initialize builds the component graph and initialises the global config.
func (r *Runner) Initialize(ctx context.Context) error {
	auth, err := wallet.Load(r.cfg.Authority.KeyFile, r.cfg.Authority.Key)
	switch {
	case errors.Is(err, wallet.ErrNoKey):
		kp := solana.NewWallet()
		auth = &wallet.Wallet{PrivateKey: kp.PrivateKey, PublicKey: kp.PublicKey()}
		r.logger.Warn("No authority key configured, using an ephemeral key",
			zap.String("authority", auth.PublicKey.String()))
	case err != nil:
		return fmt.Errorf("load authority: %w", err)
	}
	r.authority = auth

	r.store = ledger.NewMemory(ledger.WithLogger(r.logger))
	r.bus = events.NewBus(r.logger, r.cfg.Events.BufferSize)

	r.program, err = launchpad.NewProgram(r.store, r.logger,
		launchpad.WithBus(r.bus),
		launchpad.WithDefaults(r.cfg.Protocol.Defaults()))
	if err != nil {
		return err
	}

	r.registry = prometheus.NewRegistry()
	r.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if r.collector, err = metrics.NewCollector(r.registry); err != nil {
		return err
	}
	r.subs = append(r.subs, r.collector.Subscribe(r.bus)...)

	if err := r.initArchive(); err != nil {
		return err
	}
	if err := r.initMigration(); err != nil {
		return err
	}
	if r.cfg.API.Enabled {
		listener := eventlistener.NewListener(r.store, eventlistener.Config{PollInterval: r.cfg.Events.PollInterval}, r.logger)
		stream := eventlistener.NewStream(listener, r.logger)
		r.server, err = api.NewServer(api.Config{
			ListenAddr:      r.cfg.API.ListenAddr,
			ShutdownTimeout: r.cfg.API.ShutdownTimeout,
			MaxPageSize:     r.cfg.API.MaxPageSize,
		}, api.Deps{
			Program:  r.program,
			History:  history.NewScanner(r.store, r.program, r.logger),
			Exporter: export.NewExporter(r.logger),
			Metrics:  r.collector,
			Gatherer: r.registry,
			Stream:   stream,
		}, r.logger)
		if err != nil {
			return err
		}
	}

	err = r.program.Initialize(ctx, r.authority.PublicKey)
	if err != nil && !errors.Is(err, launchpad.ErrAlreadyInitialized) {
		return fmt.Errorf("initialize program: %w", err)
	}
	r.logger.Info("Launchpad initialized",
		zap.String("program_id", r.program.ID().String()),
		zap.String("authority", r.authority.PublicKey.String()),
		zap.String("fee_vault", r.program.FeeVaultAddress().String()))
	return nil
}

func (r *Runner) initArchive() error {
	if !r.cfg.Archive.Enabled {
		return nil
	}
	archive, err := postgres.NewStorage(r.cfg.Archive.PostgresURL, postgres.Options{
		MaxIdleConns:    r.cfg.Archive.MaxIdleConns,
		MaxOpenConns:    r.cfg.Archive.MaxOpenConns,
		ConnMaxLifetime: r.cfg.Archive.ConnMaxLifetime,
	}, r.logger)
	if err != nil {
		return err
	}
	if err := archive.RunMigrations(); err != nil {
		_ = archive.Close()
		return err
	}
	r.archive = archive
	r.subs = append(r.subs, storage.NewArchiver(archive, r.logger).Subscribe(r.bus)...)
	return nil
}

func (r *Runner) initMigration() error {
	if !r.cfg.Migration.Enabled {
		return nil
	}
	dest := r.authority.PublicKey
	if r.cfg.Migration.Destination != "" {
		key, err := solana.PublicKeyFromBase58(r.cfg.Migration.Destination)
		if err != nil {
			return fmt.Errorf("migration destination: %w", err)
		}
		dest = key
	}
	worker, err := migration.NewWorker(r.program, migration.NewRecordingSink(dest, r.logger), migration.Config{
		Authority:       r.authority.PublicKey,
		MaxTries:        r.cfg.Migration.MaxTries,
		InitialInterval: r.cfg.Migration.InitialInterval,
		MaxInterval:     r.cfg.Migration.MaxInterval,
		Concurrency:     r.cfg.Migration.Concurrency,
		QueueSize:       r.cfg.Migration.QueueSize,
	}, r.logger)
	if err != nil {
		return err
	}
	worker.FollowLog(eventlistener.NewListener(r.store, eventlistener.Config{PollInterval: r.cfg.Events.PollInterval}, r.logger))
	r.worker = worker
	r.subs = append(r.subs, worker.Subscribe(r.bus))
	return nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives.
func (r *Runner) Run(ctx context.Context) error {
	if r.program == nil {
		return errors.New("runner is not initialized")
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if r.server != nil {
		g.Go(func() error { return r.server.Run(gctx) })
	}
	if r.worker != nil {
		g.Go(func() error { return r.worker.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	r.logger.Info("Launchpad service running")
	err := g.Wait()
	r.Shutdown()
	return err
}

// Shutdown releases the bus and the archive.
func (r *Runner) Shutdown() {
	r.logger.Info("Launchpad shutting down gracefully")

	// сначала дренируем очередь, чтобы архив получил хвост событий
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if r.bus != nil {
		if err := r.bus.Shutdown(ctx); err != nil {
			r.logger.Warn("Event bus shutdown", zap.Error(err))
		}
	}
	for _, s := range r.subs {
		s.Unsubscribe()
	}
	r.subs = nil
	if r.archive != nil {
		if err := r.archive.Close(); err != nil {
			r.logger.Warn("Archive close", zap.Error(err))
		}
	}
}
