// internal/launchpad/launch.go
package launchpad

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/codec"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

type launchAccounts struct {
	mint       solana.PublicKey
	creator    solana.PublicKey
	curve      solana.PublicKey
	curveBump  uint8
	curveToken solana.PublicKey
	metadata   solana.PublicKey
}

func (p *Program) resolveLaunch(mint, creator solana.PublicKey) (*launchAccounts, error) {
	la := &launchAccounts{mint: mint, creator: creator}
	var err error
	if la.curve, la.curveBump, err = FindBondingCurveAddress(p.id, mint); err != nil {
		return nil, fmt.Errorf("derive bonding curve address: %w", err)
	}
	if la.curveToken, err = ledger.TokenAccountAddress(la.curve, mint); err != nil {
		return nil, fmt.Errorf("derive curve token account: %w", err)
	}
	if la.metadata, err = p.MetadataAddress(mint); err != nil {
		return nil, err
	}
	return la, nil
}

func (la *launchAccounts) access() ledger.Access {
	return ledger.Access{la.mint, la.curve, la.curveToken, la.metadata}
}

// ValidateMetadata checks name, symbol and uri against the stored limits.
func ValidateMetadata(name, symbol, uri string) error {
	switch {
	case name == "" || symbol == "":
		return fmt.Errorf("%w: name and symbol are required", ErrInvalidMetadata)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w: name is %d bytes, max %d", ErrInvalidMetadata, len(name), MaxNameLen)
	case len(symbol) > MaxSymbolLen:
		return fmt.Errorf("%w: symbol is %d bytes, max %d", ErrInvalidMetadata, len(symbol), MaxSymbolLen)
	case len(uri) > MaxURILen:
		return fmt.Errorf("%w: uri is %d bytes, max %d", ErrInvalidMetadata, len(uri), MaxURILen)
	case !utf8.ValidString(name) || !utf8.ValidString(symbol) || !utf8.ValidString(uri):
		return fmt.Errorf("%w: metadata must be valid UTF-8", ErrInvalidMetadata)
	}
	return nil
}

// CreateToken launches a token: it seeds a curve from the global config and
// mints the whole supply into the curve's custody.
func (p *Program) CreateToken(ctx context.Context, params CreateTokenParams) (*BondingCurve, error) {
	if params.Mint.IsZero() {
		params.Mint = solana.NewWallet().PublicKey()
	}
	la, err := p.resolveLaunch(params.Mint, params.Creator)
	if err != nil {
		return nil, err
	}

	var (
		c  *BondingCurve
		at time.Time
	)
	err = p.store.Update(ctx, la.access(), func(tx *ledger.Tx) error {
		g, err := p.loadGlobal(tx)
		if err != nil {
			return err
		}
		at = tx.Now()
		c, err = p.launch(tx, g, la, params)
		return err
	})
	if err != nil {
		p.logger.Debug("CreateToken rejected",
			zap.String("creator", params.Creator.String()),
			zap.String("symbol", params.Symbol),
			zap.Error(err))
		return nil, fmt.Errorf("create token: %w", err)
	}

	p.afterLaunch(la, params, at)
	return c, nil
}

// CreateAndBuyToken launches a token and buys from it in one atomic update.
// buy.Mint is ignored; a zero buy.Buyer means the creator buys.
func (p *Program) CreateAndBuyToken(ctx context.Context, params CreateTokenParams, buy BuyParams) (*TradeResult, error) {
	if buy.SolAmount == 0 {
		return nil, fmt.Errorf("create and buy: %w", ErrZeroAmount)
	}
	if params.Mint.IsZero() {
		params.Mint = solana.NewWallet().PublicKey()
	}
	if buy.Buyer.IsZero() {
		buy.Buyer = params.Creator
	}
	la, err := p.resolveLaunch(params.Mint, params.Creator)
	if err != nil {
		return nil, err
	}
	ta, err := p.resolveTrade(params.Mint, buy.Buyer, buy.Referrer)
	if err != nil {
		return nil, err
	}

	var (
		res *TradeResult
		at  time.Time
	)
	access := append(la.access(), ta.access()...)
	err = p.store.Update(ctx, access, func(tx *ledger.Tx) error {
		g, err := p.loadGlobal(tx)
		if err != nil {
			return err
		}
		at = tx.Now()
		if _, err := p.launch(tx, g, la, params); err != nil {
			return err
		}
		res, err = p.buy(tx, g, ta, buy.SolAmount, buy.MinTokensOut)
		return err
	})
	if err != nil {
		p.logger.Debug("CreateAndBuyToken rejected",
			zap.String("creator", params.Creator.String()),
			zap.String("symbol", params.Symbol),
			zap.Uint64("sol_amount", buy.SolAmount),
			zap.Error(err))
		return nil, fmt.Errorf("create and buy: %w", err)
	}

	p.afterLaunch(la, params, at)
	p.afterTrade(ta, res, at)
	return res, nil
}

func (p *Program) launch(tx *ledger.Tx, g *GlobalConfig, la *launchAccounts, params CreateTokenParams) (*BondingCurve, error) {
	if g.Status != StatusRunning {
		return nil, fmt.Errorf("%w: token creation disabled while %s", ErrProgramPaused, g.Status)
	}
	if err := ValidateMetadata(params.Name, params.Symbol, params.URI); err != nil {
		return nil, err
	}
	if tx.Supply(la.mint) > 0 {
		return nil, fmt.Errorf("%w: mint %s already has supply", ErrAlreadyInitialized, la.mint)
	}

	now := tx.Now().Unix()
	c := &BondingCurve{
		Mint:             la.mint,
		Creator:          la.creator,
		VirtualSol:       g.InitialVirtualSol,
		VirtualToken:     g.InitialVirtualToken,
		RealToken:        g.InitialRealToken,
		TokenTotalSupply: g.TokenTotalSupply,
		StartTime:        now,
		Bump:             la.curveBump,
	}
	if err := p.create(tx, la.curve, c); err != nil {
		return nil, err
	}
	md := &TokenMetadata{
		Mint:     la.mint,
		Creator:  la.creator,
		Name:     params.Name,
		Symbol:   params.Symbol,
		URI:      params.URI,
		Decimals: g.TokenDecimals,
	}
	if err := p.create(tx, la.metadata, md); err != nil {
		return nil, err
	}
	if err := tx.MintTokens(la.mint, la.curve, g.TokenTotalSupply); err != nil {
		return nil, mathErr(err)
	}

	ev, err := codec.CreateEvent{
		Mint:         la.mint,
		BondingCurve: la.curve,
		Creator:      la.creator,
		Name:         params.Name,
		Symbol:       params.Symbol,
		URI:          params.URI,
		Timestamp:    now,
	}.Encode()
	if err != nil {
		return nil, err
	}
	if err := tx.Emit(ev, la.curve, la.mint, la.creator); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Program) afterLaunch(la *launchAccounts, params CreateTokenParams, at time.Time) {
	p.logger.Info("Token created",
		zap.String("mint", la.mint.String()),
		zap.String("creator", la.creator.String()),
		zap.String("name", params.Name),
		zap.String("symbol", params.Symbol))
	p.publish(events.TokenCreatedEvent{
		BaseEvent:    events.NewBase(events.TokenCreated, at),
		Mint:         la.mint,
		BondingCurve: la.curve,
		Creator:      la.creator,
		Name:         params.Name,
		Symbol:       params.Symbol,
		URI:          params.URI,
	})
}
