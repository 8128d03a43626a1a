// internal/launchpad/migration.go
package launchpad

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/codec"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// MigrationRequest is what a graduated curve hands to the sink.
type MigrationRequest struct {
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Destination  solana.PublicKey
	SolAmount    uint64 // after the migration fee
	TokenAmount  uint64
	Fee          uint64
}

// GraduationSink is the external venue that receives a graduated curve's
// liquidity. Migrate is called inside the ledger update: returning an error
// rolls the whole migration back.
type GraduationSink interface {
	Destination() solana.PublicKey
	Migrate(ctx context.Context, req MigrationRequest) error
}

// Migrate settles a completed curve into sink. Only the authority may call
// it, and only once per curve.
func (p *Program) Migrate(ctx context.Context, caller, mint solana.PublicKey, sink GraduationSink) (*MigrationRequest, error) {
	if sink == nil {
		return nil, fmt.Errorf("migrate: sink is required")
	}
	curveAddr, err := p.BondingCurveAddress(mint)
	if err != nil {
		return nil, err
	}
	curveToken, err := ledger.TokenAccountAddress(curveAddr, mint)
	if err != nil {
		return nil, fmt.Errorf("derive curve token account: %w", err)
	}
	dest := sink.Destination()
	destToken, err := ledger.TokenAccountAddress(dest, mint)
	if err != nil {
		return nil, fmt.Errorf("derive destination token account: %w", err)
	}

	var (
		req *MigrationRequest
		at  time.Time
	)
	err = p.store.Update(ctx, ledger.Access{curveAddr, curveToken, destToken}, func(tx *ledger.Tx) error {
		g, err := p.loadGlobal(tx)
		if err != nil {
			return err
		}
		if !g.Authority.Equals(caller) {
			return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
		}
		c, err := loadCurve(tx, curveAddr)
		if err != nil {
			return err
		}
		if !c.Completed {
			return fmt.Errorf("%w: %s", ErrCurveNotCompleted, mint)
		}
		if c.Migrated {
			return fmt.Errorf("%w: %s", ErrAlreadyMigrated, mint)
		}

		fee := p.defaults.MigrationFee
		sol := tx.Lamports(curveAddr)
		if sol < fee {
			return fmt.Errorf("%w: curve holds %d, migration fee is %d", ErrNotEnoughLamports, sol, fee)
		}
		tokens, err := tx.TokenBalance(mint, curveAddr)
		if err != nil {
			return err
		}

		if err := tx.Debit(curveAddr, sol); err != nil {
			return err
		}
		if err := tx.Deposit(p.feeVault, fee); err != nil {
			return mathErr(err)
		}
		if err := tx.Deposit(dest, sol-fee); err != nil {
			return mathErr(err)
		}
		if err := tx.TransferTokens(mint, curveAddr, dest, tokens); err != nil {
			return err
		}

		c.Migrated = true
		if err := put(tx, curveAddr, c); err != nil {
			return err
		}

		at = tx.Now()
		ev, err := codec.MigrateEvent{
			Mint:        mint,
			SolAmount:   sol - fee,
			TokenAmount: tokens,
			Fee:         fee,
			Timestamp:   at.Unix(),
		}.Encode()
		if err != nil {
			return err
		}
		if err := tx.Emit(ev, curveAddr, mint); err != nil {
			return err
		}

		req = &MigrationRequest{
			Mint:         mint,
			BondingCurve: curveAddr,
			Destination:  dest,
			SolAmount:    sol - fee,
			TokenAmount:  tokens,
			Fee:          fee,
		}
		if err := sink.Migrate(ctx, *req); err != nil {
			return fmt.Errorf("graduation sink: %w", err)
		}
		return nil
	})
	if err != nil {
		p.logger.Debug("Migrate rejected",
			zap.String("mint", mint.String()),
			zap.Error(err))
		return nil, fmt.Errorf("migrate: %w", err)
	}

	p.logger.Info("Bonding curve migrated",
		zap.String("mint", mint.String()),
		zap.String("destination", dest.String()),
		zap.Uint64("sol_amount", req.SolAmount),
		zap.Uint64("token_amount", req.TokenAmount),
		zap.Uint64("fee", req.Fee))
	p.publish(events.CurveMigratedEvent{
		BaseEvent:   events.NewBase(events.CurveMigrated, at),
		Mint:        mint,
		Destination: dest,
		SolAmount:   req.SolAmount,
		TokenAmount: req.TokenAmount,
		Fee:         req.Fee,
	})
	return req, nil
}
