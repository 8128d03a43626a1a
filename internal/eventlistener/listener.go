// internal/eventlistener/listener.go
package eventlistener

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/codec"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Source is the part of the ledger the listener reads.
type Source interface {
	Tail(ctx context.Context, after uint64, limit int) ([]ledger.Entry, error)
}

// Record is one decoded log entry.
type Record struct {
	Seq   uint64      `json:"seq"`
	Time  time.Time   `json:"time"`
	Name  string      `json:"name"`
	Event codec.Event `json:"event"`
}

// Filter narrows what a subscriber receives. Zero values match everything.
type Filter struct {
	Names []string
	Mint  solana.PublicKey
}

func (f Filter) match(e ledger.Entry, ev codec.Event) bool {
	if !f.Mint.IsZero() && !e.Mentions(f.Mint) {
		return false
	}
	if len(f.Names) == 0 {
		return true
	}
	for _, n := range f.Names {
		if n == ev.EventName() {
			return true
		}
	}
	return false
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
}

func DefaultConfig() Config {
	return Config{PollInterval: 250 * time.Millisecond, BatchSize: ledger.DefaultPageLimit}
}

// Listener follows the ledger log and decodes program events as they are
// committed.
type Listener struct {
	src    Source
	cfg    Config
	logger *zap.Logger
}

func NewListener(src Source, cfg Config, logger *zap.Logger) *Listener {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Listener{src: src, cfg: cfg, logger: logger.Named("listener")}
}

// Run delivers every matching record with Seq > after to handle, in commit
// order, until ctx is cancelled or handle fails. Cancellation is not an error.
func (l *Listener) Run(ctx context.Context, after uint64, filter Filter, handle func(Record) error) error {
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		batch, err := l.src.Tail(ctx, after, l.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, e := range batch {
			after = e.Seq
			ev, ok := codec.Decode(e.Data)
			if !ok {
				l.logger.Debug("Skipping undecodable entry", zap.Uint64("seq", e.Seq))
				continue
			}
			if !filter.match(e, ev) {
				continue
			}
			if err := handle(Record{Seq: e.Seq, Time: e.Time, Name: ev.EventName(), Event: ev}); err != nil {
				return err
			}
		}
		if len(batch) == l.cfg.BatchSize {
			// отставание: читаем следующую пачку сразу
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
