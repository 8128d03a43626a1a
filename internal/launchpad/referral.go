// internal/launchpad/referral.go
package launchpad

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// RegisterReferral opens a zeroed referral record for user.
func (p *Program) RegisterReferral(ctx context.Context, user solana.PublicKey) (*Referral, error) {
	addr, bump, err := FindReferralAddress(p.id, user)
	if err != nil {
		return nil, fmt.Errorf("derive referral address: %w", err)
	}
	ref := &Referral{Referrer: user, Bump: bump}

	var at time.Time
	err = p.store.Update(ctx, ledger.Access{addr}, func(tx *ledger.Tx) error {
		at = tx.Now()
		return p.create(tx, addr, ref)
	})
	if err != nil {
		p.logger.Debug("RegisterReferral rejected",
			zap.String("user", user.String()),
			zap.Error(err))
		return nil, fmt.Errorf("register referral: %w", err)
	}

	p.logger.Info("Referral registered", zap.String("user", user.String()))
	p.publish(events.ReferralRegisteredEvent{
		BaseEvent: events.NewBase(events.ReferralRegistered, at),
		Referrer:  user,
	})
	return ref, nil
}

// ClaimReferralFees pays the claimable balance of user's referral record to
// user. TotalEarned is left untouched; an empty claim succeeds and pays 0.
func (p *Program) ClaimReferralFees(ctx context.Context, user solana.PublicKey) (uint64, error) {
	addr, err := p.ReferralAddress(user)
	if err != nil {
		return 0, err
	}

	var (
		amount uint64
		at     time.Time
	)
	err = p.store.Update(ctx, ledger.Access{addr, user}, func(tx *ledger.Tx) error {
		ref, err := loadReferral(tx, addr)
		if err != nil {
			return err
		}
		amount, at = ref.Claimable, tx.Now()
		if amount > 0 {
			if have := tx.Lamports(addr); have < amount {
				return fmt.Errorf("%w: referral holds %d, owes %d", ErrNotEnoughLamports, have, amount)
			}
			if err := tx.Transfer(addr, user, amount); err != nil {
				return mathErr(err)
			}
		}
		ref.TotalClaimed += amount
		ref.Claimable = 0
		return put(tx, addr, ref)
	})
	if err != nil {
		p.logger.Debug("ClaimReferralFees rejected",
			zap.String("user", user.String()),
			zap.Error(err))
		return 0, fmt.Errorf("claim referral fees: %w", err)
	}

	p.logger.Info("Referral fees claimed",
		zap.String("user", user.String()),
		zap.Uint64("amount", amount))
	p.publish(events.ReferralClaimedEvent{
		BaseEvent: events.NewBase(events.ReferralClaimed, at),
		Referrer:  user,
		Amount:    amount,
	})
	return amount, nil
}
