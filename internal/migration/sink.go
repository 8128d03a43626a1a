// internal/migration/sink.go
package migration

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

// RecordingSink is a graduation sink that keeps the liquidity it receives
// under one destination wallet and remembers every request. It stands in
// for an AMM pool until a real venue is attached.
type RecordingSink struct {
	dest   solana.PublicKey
	logger *zap.Logger

	mu       sync.Mutex
	requests []launchpad.MigrationRequest
}

// NewRecordingSink creates a sink paying into dest.
func NewRecordingSink(dest solana.PublicKey, logger *zap.Logger) *RecordingSink {
	return &RecordingSink{dest: dest, logger: logger.Named("sink")}
}

// Destination implements launchpad.GraduationSink.
func (s *RecordingSink) Destination() solana.PublicKey { return s.dest }

// Migrate implements launchpad.GraduationSink.
func (s *RecordingSink) Migrate(ctx context.Context, req launchpad.MigrationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	s.logger.Info("Liquidity received",
		zap.String("mint", req.Mint.String()),
		zap.Uint64("sol_amount", req.SolAmount),
		zap.Uint64("token_amount", req.TokenAmount))
	return nil
}

// Requests returns a copy of every request received.
func (s *RecordingSink) Requests() []launchpad.MigrationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]launchpad.MigrationRequest(nil), s.requests...)
}
