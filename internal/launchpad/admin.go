// internal/launchpad/admin.go
package launchpad

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Validate checks the invariants every stored GlobalConfig must hold.
func (g *GlobalConfig) Validate() error {
	for name, bps := range map[string]uint16{
		"trade fee":      g.TradeFeeBps,
		"creator share":  g.CreatorShareBps,
		"referral share": g.ReferralShareBps,
	} {
		if bps > curve.BpsDenominator {
			return fmt.Errorf("%w: %s %d", ErrInvalidBps, name, bps)
		}
	}
	switch {
	case g.InitialVirtualSol == 0 || g.InitialVirtualToken == 0:
		return fmt.Errorf("%w: initial virtual reserves must be positive", ErrInvalidConfig)
	case g.InitialRealToken > g.InitialVirtualToken:
		return fmt.Errorf("%w: initial real tokens %d exceed virtual tokens %d",
			ErrInvalidConfig, g.InitialRealToken, g.InitialVirtualToken)
	case g.InitialRealToken > g.TokenTotalSupply:
		return fmt.Errorf("%w: initial real tokens %d exceed total supply %d",
			ErrInvalidConfig, g.InitialRealToken, g.TokenTotalSupply)
	case g.GraduationThreshold == 0:
		return fmt.Errorf("%w: graduation threshold must be positive", ErrInvalidConfig)
	case !g.Status.valid():
		return fmt.Errorf("%w: unknown status %d", ErrInvalidConfig, g.Status)
	}
	return nil
}

// Apply writes the non-nil fields of patch into g and returns their names.
func (patch ConfigPatch) Apply(g *GlobalConfig) []string {
	var changed []string
	setKey := func(name string, dst *solana.PublicKey, src *solana.PublicKey) {
		if src != nil {
			*dst = *src
			changed = append(changed, name)
		}
	}
	setU64 := func(name string, dst *uint64, src *uint64) {
		if src != nil {
			*dst = *src
			changed = append(changed, name)
		}
	}
	setU16 := func(name string, dst *uint16, src *uint16) {
		if src != nil {
			*dst = *src
			changed = append(changed, name)
		}
	}

	setKey("fee_receiver", &g.FeeReceiver, patch.FeeReceiver)
	setU64("initial_virtual_sol", &g.InitialVirtualSol, patch.InitialVirtualSol)
	setU64("initial_virtual_token", &g.InitialVirtualToken, patch.InitialVirtualToken)
	setU64("initial_real_token", &g.InitialRealToken, patch.InitialRealToken)
	setU64("token_total_supply", &g.TokenTotalSupply, patch.TokenTotalSupply)
	setU16("trade_fee_bps", &g.TradeFeeBps, patch.TradeFeeBps)
	setU16("creator_share_bps", &g.CreatorShareBps, patch.CreatorShareBps)
	setU16("referral_share_bps", &g.ReferralShareBps, patch.ReferralShareBps)
	setU64("graduation_threshold", &g.GraduationThreshold, patch.GraduationThreshold)
	if patch.Status != nil {
		g.Status = *patch.Status
		changed = append(changed, "status")
	}
	return changed
}

// Initialize creates the GlobalConfig with authority as both authority and
// fee receiver. It can only succeed once.
func (p *Program) Initialize(ctx context.Context, authority solana.PublicKey) error {
	_, bump, err := FindGlobalAddress(p.id)
	if err != nil {
		return fmt.Errorf("derive global address: %w", err)
	}
	d := p.defaults
	g := &GlobalConfig{
		Authority:           authority,
		FeeReceiver:         authority,
		InitialVirtualSol:   d.InitialVirtualSol,
		InitialVirtualToken: d.InitialVirtualToken,
		InitialRealToken:    d.InitialRealToken,
		TokenTotalSupply:    d.TokenTotalSupply,
		TokenDecimals:       d.TokenDecimals,
		TradeFeeBps:         d.TradeFeeBps,
		CreatorShareBps:     d.CreatorShareBps,
		ReferralShareBps:    d.ReferralShareBps,
		GraduationThreshold: d.GraduationThreshold,
		Status:              StatusRunning,
		Bump:                bump,
	}
	if err := g.Validate(); err != nil {
		return err
	}

	var at time.Time
	err = p.store.Update(ctx, ledger.Access{p.global}, func(tx *ledger.Tx) error {
		at = tx.Now()
		return p.create(tx, p.global, g)
	})
	if err != nil {
		p.logger.Debug("Initialize rejected", zap.Error(err))
		return fmt.Errorf("initialize: %w", err)
	}

	p.logger.Warn("Protocol initialized",
		zap.String("authority", authority.String()),
		zap.Uint16("trade_fee_bps", g.TradeFeeBps),
		zap.Uint64("graduation_threshold", g.GraduationThreshold))
	p.publish(events.ConfigUpdatedEvent{
		BaseEvent: events.NewBase(events.ConfigUpdated, at),
		Authority: authority,
		Fields:    []string{"initialize"},
	})
	return nil
}

// UpdateConfig applies patch on behalf of caller, who must be the authority.
// The authority check precedes validation, so a non-authority caller always
// gets ErrUnauthorized.
func (p *Program) UpdateConfig(ctx context.Context, caller solana.PublicKey, patch ConfigPatch) (*GlobalConfig, error) {
	var (
		updated *GlobalConfig
		changed []string
		at      time.Time
	)
	err := p.store.Update(ctx, ledger.Access{p.global}, func(tx *ledger.Tx) error {
		g, err := p.loadGlobal(tx)
		if err != nil {
			return err
		}
		if !g.Authority.Equals(caller) {
			return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
		}
		changed = patch.Apply(g)
		if err := g.Validate(); err != nil {
			return err
		}
		updated, at = g, tx.Now()
		return put(tx, p.global, g)
	})
	if err != nil {
		p.logger.Debug("UpdateConfig rejected",
			zap.String("caller", caller.String()),
			zap.Error(err))
		return nil, fmt.Errorf("update config: %w", err)
	}

	p.logger.Warn("Config updated",
		zap.String("authority", caller.String()),
		zap.Strings("fields", changed),
		zap.String("status", updated.Status.String()))
	p.publish(events.ConfigUpdatedEvent{
		BaseEvent: events.NewBase(events.ConfigUpdated, at),
		Authority: caller,
		Fields:    changed,
	})
	return updated, nil
}

// WithdrawFees moves the whole fee vault balance to the fee receiver. An empty
// vault is not an error: nothing moves and 0 is returned.
func (p *Program) WithdrawFees(ctx context.Context, caller solana.PublicKey) (uint64, error) {
	var (
		amount   uint64
		receiver solana.PublicKey
		at       time.Time
	)
	err := p.store.Update(ctx, ledger.Access{p.global, p.feeVault}, func(tx *ledger.Tx) error {
		g, err := p.loadGlobal(tx)
		if err != nil {
			return err
		}
		if !g.Authority.Equals(caller) {
			return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
		}
		amount = tx.Lamports(p.feeVault)
		if amount == 0 {
			return nil
		}
		if err := tx.Debit(p.feeVault, amount); err != nil {
			return err
		}
		receiver, at = g.FeeReceiver, tx.Now()
		return mathErr(tx.Deposit(receiver, amount))
	})
	if err != nil {
		p.logger.Debug("WithdrawFees rejected",
			zap.String("caller", caller.String()),
			zap.Error(err))
		return 0, fmt.Errorf("withdraw fees: %w", err)
	}
	if amount == 0 {
		p.logger.Debug("Fee vault empty, nothing to withdraw")
		return 0, nil
	}

	p.logger.Info("Fees withdrawn",
		zap.String("receiver", receiver.String()),
		zap.Uint64("amount", amount))
	p.publish(events.FeesWithdrawnEvent{
		BaseEvent: events.NewBase(events.FeesWithdrawn, at),
		Receiver:  receiver,
		Amount:    amount,
	})
	return amount, nil
}
