// internal/launchpad/quote.go
package launchpad

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Quote is the outcome a trade would have against a curve snapshot. It is
// advisory: the curve may move before the trade executes.
type Quote struct {
	IsBuy     bool
	AmountIn  uint64 // lamports on a buy, tokens on a sell
	AmountOut uint64 // tokens on a buy, lamports after fees on a sell
	Fees      FeeSplit
	After     BondingCurve
	Completes bool
}

// QuoteBuy simulates spending solIn lamports on c.
func QuoteBuy(g *GlobalConfig, c *BondingCurve, solIn uint64, withReferral bool) (*Quote, error) {
	if c.Completed {
		return nil, ErrCurveCompleted
	}
	if solIn == 0 {
		return nil, ErrZeroAmount
	}
	fees, err := SplitFee(solIn, g, withReferral)
	if err != nil {
		return nil, err
	}
	net := solIn - fees.Total
	out, err := curve.BuyOut(c.VirtualSol, c.VirtualToken, net)
	if err != nil {
		return nil, mathErr(err)
	}
	if out > c.RealToken {
		return nil, fmt.Errorf("%w: %d requested, %d left on curve", ErrNotEnoughTokens, out, c.RealToken)
	}
	after := *c
	after.VirtualSol += net
	after.VirtualToken -= out
	after.RealToken -= out
	after.RealSolReserves += net
	return &Quote{
		IsBuy:     true,
		AmountIn:  solIn,
		AmountOut: out,
		Fees:      fees,
		After:     after,
		Completes: after.RealSolReserves >= g.GraduationThreshold,
	}, nil
}

// QuoteSell simulates selling tokenIn tokens into c. vault is the lamport
// balance of the curve account, which pays the raw output including fees and
// can fall below RealSolReserves.
func QuoteSell(g *GlobalConfig, c *BondingCurve, vault, tokenIn uint64, withReferral bool) (*Quote, error) {
	if c.Completed {
		return nil, ErrCurveCompleted
	}
	if tokenIn == 0 {
		return nil, ErrZeroAmount
	}
	raw, err := curve.SellOut(tokenIn, c.VirtualSol, c.VirtualToken)
	if err != nil {
		return nil, mathErr(err)
	}
	fees, err := SplitFee(raw, g, withReferral)
	if err != nil {
		return nil, err
	}
	net := raw - fees.Total
	if net > c.RealSolReserves || net > c.VirtualSol {
		return nil, fmt.Errorf("%w: curve reserves %d cannot pay %d", ErrNotEnoughLamports, c.RealSolReserves, net)
	}
	if vault < raw {
		return nil, fmt.Errorf("%w: curve holds %d lamports, pays out %d", ErrNotEnoughLamports, vault, raw)
	}
	after := *c
	after.VirtualSol -= net
	after.VirtualToken += tokenIn
	after.RealToken += tokenIn
	after.RealSolReserves -= net
	return &Quote{
		IsBuy:     false,
		AmountIn:  tokenIn,
		AmountOut: net,
		Fees:      fees,
		After:     after,
		Completes: after.RealSolReserves >= g.GraduationThreshold,
	}, nil
}

// Quote loads mint's curve and quotes a buy (isBuy) or sell of amount.
func (p *Program) Quote(ctx context.Context, mint solana.PublicKey, isBuy bool, amount uint64) (*Quote, error) {
	g, err := p.GetGlobal(ctx)
	if err != nil {
		return nil, err
	}
	addr, err := p.BondingCurveAddress(mint)
	if err != nil {
		return nil, err
	}
	var (
		c     *BondingCurve
		vault uint64
	)
	err = p.store.View(ctx, func(r ledger.Reader) error {
		if c, err = loadCurve(r, addr); err != nil {
			return err
		}
		vault = r.Lamports(addr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if isBuy {
		return QuoteBuy(g, c, amount, false)
	}
	return QuoteSell(g, c, vault, amount, false)
}

// Display conversions. Everything below is for presentation only and never
// feeds back into protocol arithmetic.

// LamportsToSol converts lamports to SOL.
func LamportsToSol(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
}

// TokenUnits converts base units to whole tokens.
func TokenUnits(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

// SpotPrice is the marginal price of one whole token in SOL.
func SpotPrice(c *BondingCurve, decimals uint8) decimal.Decimal {
	if c.VirtualToken == 0 {
		return decimal.Zero
	}
	return LamportsToSol(c.VirtualSol).Div(TokenUnits(c.VirtualToken, decimals))
}

// MarketCapSol values the total supply at the spot price.
func MarketCapSol(c *BondingCurve, decimals uint8) decimal.Decimal {
	return SpotPrice(c, decimals).Mul(TokenUnits(c.TokenTotalSupply, decimals))
}

// Progress is the percentage of the graduation threshold reached, capped at 100.
func Progress(c *BondingCurve, threshold uint64) decimal.Decimal {
	if c.Completed || threshold == 0 {
		return decimal.NewFromInt(100)
	}
	hundred := decimal.NewFromInt(100)
	pct := decimal.NewFromBigInt(new(big.Int).SetUint64(c.RealSolReserves), 0).
		Mul(hundred).
		Div(decimal.NewFromBigInt(new(big.Int).SetUint64(threshold), 0))
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct.Truncate(2)
}
