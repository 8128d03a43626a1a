// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// Storage keeps the archive in process memory. It backs tests and runs
// without a database.
type Storage struct {
	mu       sync.RWMutex
	nextID   uint
	trades   map[string][]*models.Trade // by mint, in insertion order
	eventIDs map[string]struct{}
	launches map[string]*models.Launch
}

var _ storage.Storage = (*Storage)(nil)

// New creates an empty Storage.
func New() *Storage {
	return &Storage{
		trades:   make(map[string][]*models.Trade),
		eventIDs: make(map[string]struct{}),
		launches: make(map[string]*models.Launch),
	}
}

func (s *Storage) stamp(m *models.BaseModel) {
	s.nextID++
	now := time.Now().UTC()
	m.ID = s.nextID
	m.CreatedAt = now
	m.UpdatedAt = now
}

func (s *Storage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.eventIDs[trade.EventID]; dup {
		return nil
	}
	cp := *trade
	s.stamp(&cp.BaseModel)
	trade.BaseModel = cp.BaseModel
	s.eventIDs[cp.EventID] = struct{}{}
	s.trades[cp.Mint] = append(s.trades[cp.Mint], &cp)
	return nil
}

func (s *Storage) ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := append([]*models.Trade(nil), s.trades[mint]...)
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].ExecutedAt.Equal(all[j].ExecutedAt) {
			return all[i].ExecutedAt.After(all[j].ExecutedAt)
		}
		return all[i].ID > all[j].ID
	})
	if offset >= len(all) {
		return []*models.Trade{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*models.Trade, len(all))
	for i, t := range all {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

func (s *Storage) SaveLaunch(ctx context.Context, launch *models.Launch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.launches[launch.Mint]; ok {
		return nil
	}
	cp := *launch
	s.stamp(&cp.BaseModel)
	launch.BaseModel = cp.BaseModel
	s.launches[cp.Mint] = &cp
	return nil
}

func (s *Storage) GetLaunch(ctx context.Context, mint string) (*models.Launch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.launches[mint]
	if !ok {
		return nil, fmt.Errorf("launch %s: %w", mint, storage.ErrNotFound)
	}
	cp := *l
	return &cp, nil
}

func (s *Storage) RecordCurveState(ctx context.Context, mint string, realSol uint64, at time.Time) error {
	return s.update(ctx, mint, func(l *models.Launch) {
		l.RealSolReserves = realSol
		l.TradeCount++
		l.UpdatedAt = at
	})
}

func (s *Storage) MarkCompleted(ctx context.Context, mint string, at time.Time) error {
	return s.update(ctx, mint, func(l *models.Launch) { l.CompletedAt = &at })
}

func (s *Storage) MarkMigrated(ctx context.Context, mint string, at time.Time) error {
	return s.update(ctx, mint, func(l *models.Launch) { l.MigratedAt = &at })
}

func (s *Storage) update(ctx context.Context, mint string, fn func(l *models.Launch)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.launches[mint]
	if !ok {
		return fmt.Errorf("launch %s: %w", mint, storage.ErrNotFound)
	}
	fn(l)
	return nil
}

func (s *Storage) RunMigrations() error { return nil }

func (s *Storage) Close() error { return nil }
