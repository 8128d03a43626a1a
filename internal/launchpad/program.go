// =============================
// File: internal/launchpad/program.go
// =============================
package launchpad

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Program executes protocol operations against a ledger.Store.
type Program struct {
	id       solana.PublicKey
	store    ledger.Store
	logger   *zap.Logger
	bus      *events.Bus
	defaults Defaults

	global   solana.PublicKey
	feeVault solana.PublicKey
}

// Option configures a Program.
type Option func(*Program)

// WithBus publishes post-commit notifications on bus.
func WithBus(bus *events.Bus) Option {
	return func(p *Program) { p.bus = bus }
}

// WithDefaults overrides the parameters used by Initialize and Migrate.
func WithDefaults(d Defaults) Option {
	return func(p *Program) { p.defaults = d }
}

// WithProgramID derives every address from id instead of ProgramID.
func WithProgramID(id solana.PublicKey) Option {
	return func(p *Program) { p.id = id }
}

// NewProgram creates a Program backed by store.
func NewProgram(store ledger.Store, logger *zap.Logger, opts ...Option) (*Program, error) {
	if store == nil {
		return nil, errors.New("launchpad: store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Program{
		id:       ProgramID,
		store:    store,
		logger:   logger.Named("launchpad"),
		defaults: DefaultParams(),
	}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.global, _, err = FindGlobalAddress(p.id); err != nil {
		return nil, fmt.Errorf("derive global address: %w", err)
	}
	if p.feeVault, _, err = FindFeeVaultAddress(p.id); err != nil {
		return nil, fmt.Errorf("derive fee vault address: %w", err)
	}
	return p, nil
}

// ID returns the program identity.
func (p *Program) ID() solana.PublicKey { return p.id }

// Defaults returns the parameters the program was built with.
func (p *Program) Defaults() Defaults { return p.defaults }

// Store returns the underlying ledger.
func (p *Program) Store() ledger.Store { return p.store }

// publish hands an event to the bus; the operation has already committed, so
// a full or closed bus is logged and otherwise ignored.
func (p *Program) publish(ev events.Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ev); err != nil {
		p.logger.Warn("Failed to publish event",
			zap.String("event_type", string(ev.Type())),
			zap.Error(err))
	}
}

func notFound(what string, key solana.PublicKey, err error) error {
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return fmt.Errorf("%w: %s %s", ErrAccountNotFound, what, key)
	}
	return fmt.Errorf("load %s %s: %w", what, key, err)
}

func (p *Program) loadGlobal(r ledger.Reader) (*GlobalConfig, error) {
	acc, err := r.Account(p.global)
	if err != nil {
		return nil, notFound("global config", p.global, err)
	}
	return DecodeGlobalConfig(acc.Data)
}

func loadCurve(r ledger.Reader, addr solana.PublicKey) (*BondingCurve, error) {
	acc, err := r.Account(addr)
	if err != nil {
		return nil, notFound("bonding curve", addr, err)
	}
	return DecodeBondingCurve(acc.Data)
}

func loadReferral(r ledger.Reader, addr solana.PublicKey) (*Referral, error) {
	acc, err := r.Account(addr)
	if err != nil {
		return nil, notFound("referral", addr, err)
	}
	return DecodeReferral(acc.Data)
}

type marshaler interface {
	Marshal() ([]byte, error)
}

func put(tx *ledger.Tx, key solana.PublicKey, v marshaler) error {
	data, err := v.Marshal()
	if err != nil {
		return err
	}
	return tx.Put(key, data)
}

func (p *Program) create(tx *ledger.Tx, key solana.PublicKey, v marshaler) error {
	data, err := v.Marshal()
	if err != nil {
		return err
	}
	if err := tx.Create(key, p.id, data); err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			return fmt.Errorf("%w: %s", ErrAlreadyInitialized, key)
		}
		return err
	}
	return nil
}

// GetGlobal returns the current GlobalConfig.
func (p *Program) GetGlobal(ctx context.Context) (*GlobalConfig, error) {
	var g *GlobalConfig
	err := p.store.View(ctx, func(r ledger.Reader) error {
		var err error
		g, err = p.loadGlobal(r)
		return err
	})
	return g, err
}

// GetBondingCurve returns the curve for mint.
func (p *Program) GetBondingCurve(ctx context.Context, mint solana.PublicKey) (*BondingCurve, error) {
	addr, err := p.BondingCurveAddress(mint)
	if err != nil {
		return nil, err
	}
	var c *BondingCurve
	err = p.store.View(ctx, func(r ledger.Reader) error {
		c, err = loadCurve(r, addr)
		return err
	})
	return c, err
}

// GetReferral returns the referral record of user.
func (p *Program) GetReferral(ctx context.Context, user solana.PublicKey) (*Referral, error) {
	addr, err := p.ReferralAddress(user)
	if err != nil {
		return nil, err
	}
	var ref *Referral
	err = p.store.View(ctx, func(r ledger.Reader) error {
		ref, err = loadReferral(r, addr)
		return err
	})
	return ref, err
}

// GetTokenMetadata returns the metadata stored for mint.
func (p *Program) GetTokenMetadata(ctx context.Context, mint solana.PublicKey) (*TokenMetadata, error) {
	addr, err := p.MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	var md *TokenMetadata
	err = p.store.View(ctx, func(r ledger.Reader) error {
		acc, err := r.Account(addr)
		if err != nil {
			return notFound("token metadata", addr, err)
		}
		md, err = DecodeTokenMetadata(acc.Data)
		return err
	})
	return md, err
}

// TokenBalance returns owner's balance of mint.
func (p *Program) TokenBalance(ctx context.Context, mint, owner solana.PublicKey) (uint64, error) {
	var n uint64
	err := p.store.View(ctx, func(r ledger.Reader) error {
		var err error
		n, err = r.TokenBalance(mint, owner)
		return err
	})
	return n, err
}

// Lamports returns the native balance of key.
func (p *Program) Lamports(ctx context.Context, key solana.PublicKey) (uint64, error) {
	var n uint64
	err := p.store.View(ctx, func(r ledger.Reader) error {
		n = r.Lamports(key)
		return nil
	})
	return n, err
}
