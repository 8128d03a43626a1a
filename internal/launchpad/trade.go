// =============================
// File: internal/launchpad/trade.go
// =============================
package launchpad

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/codec"
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// tradeAccounts are the keys one trade touches.
type tradeAccounts struct {
	mint        solana.PublicKey
	trader      solana.PublicKey
	curve       solana.PublicKey
	curveToken  solana.PublicKey
	traderToken solana.PublicKey
	referrer    solana.PublicKey
	referral    solana.PublicKey // zero when no referrer is cited
}

func (p *Program) resolveTrade(mint, trader, referrer solana.PublicKey) (*tradeAccounts, error) {
	a := &tradeAccounts{mint: mint, trader: trader, referrer: referrer}
	var err error
	if a.curve, err = p.BondingCurveAddress(mint); err != nil {
		return nil, err
	}
	if a.curveToken, err = ledger.TokenAccountAddress(a.curve, mint); err != nil {
		return nil, fmt.Errorf("derive curve token account: %w", err)
	}
	if a.traderToken, err = ledger.TokenAccountAddress(trader, mint); err != nil {
		return nil, fmt.Errorf("derive trader token account: %w", err)
	}
	if !referrer.IsZero() {
		if a.referral, err = p.ReferralAddress(referrer); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *tradeAccounts) hasReferral() bool { return !a.referral.IsZero() }

// access lists the keys a trade writes. Creator and protocol fees are
// deposits and need no lock.
func (a *tradeAccounts) access() ledger.Access {
	keys := ledger.Access{a.curve, a.curveToken, a.trader, a.traderToken}
	if a.hasReferral() {
		keys = append(keys, a.referral)
	}
	return keys
}

// BuyToken spends params.SolAmount lamports (fee included) on the curve of
// params.Mint.
func (p *Program) BuyToken(ctx context.Context, params BuyParams) (*TradeResult, error) {
	a, err := p.resolveTrade(params.Mint, params.Buyer, params.Referrer)
	if err != nil {
		return nil, err
	}
	var (
		res *TradeResult
		at  time.Time
	)
	err = p.store.Update(ctx, a.access(), func(tx *ledger.Tx) error {
		g, err := p.loadGlobal(tx)
		if err != nil {
			return err
		}
		at = tx.Now()
		res, err = p.buy(tx, g, a, params.SolAmount, params.MinTokensOut)
		return err
	})
	if err != nil {
		p.logger.Debug("Buy rejected",
			zap.String("mint", params.Mint.String()),
			zap.String("buyer", params.Buyer.String()),
			zap.Uint64("sol_amount", params.SolAmount),
			zap.Error(err))
		return nil, fmt.Errorf("buy: %w", err)
	}
	p.afterTrade(a, res, at)
	return res, nil
}

// SellToken sells params.TokenAmount tokens back into the curve.
func (p *Program) SellToken(ctx context.Context, params SellParams) (*TradeResult, error) {
	a, err := p.resolveTrade(params.Mint, params.Seller, params.Referrer)
	if err != nil {
		return nil, err
	}
	var (
		res *TradeResult
		at  time.Time
	)
	err = p.store.Update(ctx, a.access(), func(tx *ledger.Tx) error {
		g, err := p.loadGlobal(tx)
		if err != nil {
			return err
		}
		at = tx.Now()
		res, err = p.sell(tx, g, a, params.TokenAmount, params.MinSolOut)
		return err
	})
	if err != nil {
		p.logger.Debug("Sell rejected",
			zap.String("mint", params.Mint.String()),
			zap.String("seller", params.Seller.String()),
			zap.Uint64("token_amount", params.TokenAmount),
			zap.Error(err))
		return nil, fmt.Errorf("sell: %w", err)
	}
	p.afterTrade(a, res, at)
	return res, nil
}

// buy runs the buy algorithm inside tx. Checks happen before any write.
func (p *Program) buy(tx *ledger.Tx, g *GlobalConfig, a *tradeAccounts, solIn, minTokensOut uint64) (*TradeResult, error) {
	if g.Status == StatusPaused {
		return nil, ErrProgramPaused
	}
	c, err := loadCurve(tx, a.curve)
	if err != nil {
		return nil, err
	}
	if c.Completed {
		return nil, fmt.Errorf("%w: %s", ErrCurveCompleted, a.mint)
	}
	if solIn == 0 {
		return nil, ErrZeroAmount
	}

	fees, err := SplitFee(solIn, g, a.hasReferral())
	if err != nil {
		return nil, err
	}
	solAfterFee := solIn - fees.Total

	tokensOut, err := curve.BuyOut(c.VirtualSol, c.VirtualToken, solAfterFee)
	if err != nil {
		return nil, mathErr(err)
	}
	if tokensOut < minTokensOut {
		return nil, fmt.Errorf("%w: got %d tokens, want at least %d", ErrSlippageExceeded, tokensOut, minTokensOut)
	}
	if tokensOut > c.RealToken {
		return nil, fmt.Errorf("%w: %d requested, %d left on curve", ErrNotEnoughTokens, tokensOut, c.RealToken)
	}
	if have := tx.Lamports(a.trader); have < solIn {
		return nil, fmt.Errorf("%w: buyer has %d lamports, needs %d", ErrInsufficientFunds, have, solIn)
	}

	var ref *Referral
	if a.hasReferral() {
		if ref, err = loadReferral(tx, a.referral); err != nil {
			return nil, err
		}
	}

	var carry uint64
	c.VirtualSol, carry = bits.Add64(c.VirtualSol, solAfterFee, 0)
	if carry != 0 {
		return nil, fmt.Errorf("%w: virtual sol", ErrOverflow)
	}
	c.RealSolReserves, carry = bits.Add64(c.RealSolReserves, solAfterFee, 0)
	if carry != 0 {
		return nil, fmt.Errorf("%w: real sol reserves", ErrOverflow)
	}
	c.VirtualToken -= tokensOut // tokensOut < VirtualToken by the curve's asymptote
	c.RealToken -= tokensOut

	if err := tx.Debit(a.trader, solIn); err != nil {
		return nil, err
	}
	if err := tx.Credit(a.curve, solAfterFee); err != nil {
		return nil, mathErr(err)
	}
	if err := p.payFees(tx, c, a, ref, fees); err != nil {
		return nil, err
	}
	if err := tx.TransferTokens(a.mint, a.curve, a.trader, tokensOut); err != nil {
		return nil, err
	}

	return p.settle(tx, g, c, a, &TradeResult{
		Mint:        a.mint,
		Trader:      a.trader,
		IsBuy:       true,
		SolAmount:   solIn,
		TokenAmount: tokensOut,
		Fees:        fees,
	})
}

// sell runs the sell algorithm inside tx. The fee is taken from the curve's
// payout, not from the tokens sold.
func (p *Program) sell(tx *ledger.Tx, g *GlobalConfig, a *tradeAccounts, tokenIn, minSolOut uint64) (*TradeResult, error) {
	if g.Status == StatusPaused {
		return nil, ErrProgramPaused
	}
	c, err := loadCurve(tx, a.curve)
	if err != nil {
		return nil, err
	}
	if c.Completed {
		return nil, fmt.Errorf("%w: %s", ErrCurveCompleted, a.mint)
	}
	if tokenIn == 0 {
		return nil, ErrZeroAmount
	}

	held, err := tx.TokenBalance(a.mint, a.trader)
	if err != nil {
		return nil, err
	}
	if held < tokenIn {
		return nil, fmt.Errorf("%w: seller holds %d tokens, sells %d", ErrInsufficientFunds, held, tokenIn)
	}

	solOutRaw, err := curve.SellOut(tokenIn, c.VirtualSol, c.VirtualToken)
	if err != nil {
		return nil, mathErr(err)
	}
	fees, err := SplitFee(solOutRaw, g, a.hasReferral())
	if err != nil {
		return nil, err
	}
	solOutAfterFee := solOutRaw - fees.Total
	if solOutAfterFee < minSolOut {
		return nil, fmt.Errorf("%w: got %d lamports, want at least %d", ErrSlippageExceeded, solOutAfterFee, minSolOut)
	}
	if solOutAfterFee > c.RealSolReserves || solOutAfterFee > c.VirtualSol {
		return nil, fmt.Errorf("%w: curve reserves %d cannot pay %d", ErrNotEnoughLamports, c.RealSolReserves, solOutAfterFee)
	}
	if vault := tx.Lamports(a.curve); vault < solOutRaw {
		return nil, fmt.Errorf("%w: curve holds %d lamports, pays out %d", ErrNotEnoughLamports, vault, solOutRaw)
	}

	var ref *Referral
	if a.hasReferral() {
		if ref, err = loadReferral(tx, a.referral); err != nil {
			return nil, err
		}
	}

	var carry uint64
	c.VirtualToken, carry = bits.Add64(c.VirtualToken, tokenIn, 0)
	if carry != 0 {
		return nil, fmt.Errorf("%w: virtual token", ErrOverflow)
	}
	c.RealToken, carry = bits.Add64(c.RealToken, tokenIn, 0)
	if carry != 0 {
		return nil, fmt.Errorf("%w: real token", ErrOverflow)
	}
	c.VirtualSol -= solOutAfterFee
	c.RealSolReserves -= solOutAfterFee

	if err := tx.TransferTokens(a.mint, a.trader, a.curve, tokenIn); err != nil {
		return nil, err
	}
	if err := tx.Debit(a.curve, solOutRaw); err != nil {
		return nil, err
	}
	if err := tx.Credit(a.trader, solOutAfterFee); err != nil {
		return nil, mathErr(err)
	}
	if err := p.payFees(tx, c, a, ref, fees); err != nil {
		return nil, err
	}

	return p.settle(tx, g, c, a, &TradeResult{
		Mint:        a.mint,
		Trader:      a.trader,
		IsBuy:       false,
		SolAmount:   solOutRaw,
		TokenAmount: tokenIn,
		Fees:        fees,
	})
}

// payFees distributes a trade's fee and updates the cited referral.
func (p *Program) payFees(tx *ledger.Tx, c *BondingCurve, a *tradeAccounts, ref *Referral, fees FeeSplit) error {
	if err := tx.Deposit(c.Creator, fees.Creator); err != nil {
		return mathErr(err)
	}
	if err := tx.Deposit(p.feeVault, fees.Protocol); err != nil {
		return mathErr(err)
	}
	if ref == nil {
		return nil
	}
	if err := tx.Credit(a.referral, fees.Referral); err != nil {
		return mathErr(err)
	}
	ref.TotalEarned += fees.Referral
	ref.Claimable += fees.Referral
	ref.TradeCount++
	return put(tx, a.referral, ref)
}

// settle applies the graduation check, persists the curve and writes the
// log records of the trade.
func (p *Program) settle(tx *ledger.Tx, g *GlobalConfig, c *BondingCurve, a *tradeAccounts, res *TradeResult) (*TradeResult, error) {
	if !c.Completed && c.RealSolReserves >= g.GraduationThreshold {
		c.Completed = true
		res.Completed = true
	}
	if err := put(tx, a.curve, c); err != nil {
		return nil, err
	}
	res.Curve = *c

	now := tx.Now().Unix()
	trade, err := codec.TradeEvent{
		Mint:         a.mint,
		Trader:       a.trader,
		IsBuy:        res.IsBuy,
		SolAmount:    res.SolAmount,
		TokenAmount:  res.TokenAmount,
		Fee:          res.Fees.Total,
		Timestamp:    now,
		VirtualSol:   c.VirtualSol,
		VirtualToken: c.VirtualToken,
	}.Encode()
	if err != nil {
		return nil, err
	}
	if err := tx.Emit(trade, a.curve, a.mint, a.trader); err != nil {
		return nil, err
	}

	if res.Completed {
		complete, err := codec.CompleteEvent{
			Mint:            a.mint,
			BondingCurve:    a.curve,
			User:            a.trader,
			RealSolReserves: c.RealSolReserves,
			Timestamp:       now,
		}.Encode()
		if err != nil {
			return nil, err
		}
		if err := tx.Emit(complete, a.curve, a.mint); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// afterTrade logs and publishes a committed trade.
func (p *Program) afterTrade(a *tradeAccounts, res *TradeResult, at time.Time) {
	side := "sell"
	if res.IsBuy {
		side = "buy"
	}
	p.logger.Info("Trade executed",
		zap.String("side", side),
		zap.String("mint", a.mint.String()),
		zap.String("trader", a.trader.String()),
		zap.Uint64("sol_amount", res.SolAmount),
		zap.Uint64("token_amount", res.TokenAmount),
		zap.Uint64("fee", res.Fees.Total),
		zap.Uint64("real_sol_reserves", res.Curve.RealSolReserves))

	p.publish(events.TradeExecutedEvent{
		BaseEvent:       events.NewBase(events.TradeExecuted, at),
		Mint:            a.mint,
		Trader:          a.trader,
		Referrer:        a.referrer,
		IsBuy:           res.IsBuy,
		SolAmount:       res.SolAmount,
		TokenAmount:     res.TokenAmount,
		Fee:             res.Fees.Total,
		CreatorFee:      res.Fees.Creator,
		ReferralFee:     res.Fees.Referral,
		ProtocolFee:     res.Fees.Protocol,
		VirtualSol:      res.Curve.VirtualSol,
		VirtualToken:    res.Curve.VirtualToken,
		RealSolReserves: res.Curve.RealSolReserves,
	})

	if res.Completed {
		p.logger.Info("Bonding curve completed",
			zap.String("mint", a.mint.String()),
			zap.Uint64("real_sol_reserves", res.Curve.RealSolReserves))
		p.publish(events.CurveCompletedEvent{
			BaseEvent:       events.NewBase(events.CurveCompleted, at),
			Mint:            a.mint,
			BondingCurve:    a.curve,
			User:            a.trader,
			RealSolReserves: res.Curve.RealSolReserves,
		})
	}
}
