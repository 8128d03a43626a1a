// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	// Сделки
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error)

	// Запуски токенов
	SaveLaunch(ctx context.Context, launch *models.Launch) error
	GetLaunch(ctx context.Context, mint string) (*models.Launch, error)
	RecordCurveState(ctx context.Context, mint string, realSol uint64, at time.Time) error
	MarkCompleted(ctx context.Context, mint string, at time.Time) error
	MarkMigrated(ctx context.Context, mint string, at time.Time) error

	RunMigrations() error
	Close() error
}
