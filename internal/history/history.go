// Package history rebuilds trade history from the ledger log. It is the
// read path chart and activity views use: records are decoded from events,
// never read from curve state.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/codec"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// TradeRecord is one decoded trade.
type TradeRecord struct {
	Seq          uint64           `json:"seq"`
	Time         time.Time        `json:"time"`
	Mint         solana.PublicKey `json:"mint"`
	Trader       solana.PublicKey `json:"trader"`
	IsBuy        bool             `json:"isBuy"`
	SolAmount    uint64           `json:"solAmount"`
	TokenAmount  uint64           `json:"tokenAmount"`
	Fee          uint64           `json:"fee"`
	VirtualSol   uint64           `json:"virtualSol"`
	VirtualToken uint64           `json:"virtualToken"`
}

// Side returns "buy" or "sell".
func (r TradeRecord) Side() string {
	if r.IsBuy {
		return "buy"
	}
	return "sell"
}

// Resolver maps a mint to the account its trades are logged under.
type Resolver interface {
	BondingCurveAddress(mint solana.PublicKey) (solana.PublicKey, error)
}

// Scanner reads trade history from a ledger.
type Scanner struct {
	store    ledger.Store
	resolver Resolver
	logger   *zap.Logger
}

// NewScanner creates a Scanner.
func NewScanner(store ledger.Store, resolver Resolver, logger *zap.Logger) *Scanner {
	return &Scanner{store: store, resolver: resolver, logger: logger.Named("history")}
}

// FromEntry decodes a trade record from a log entry. ok is false for any
// other record type and for malformed records.
func FromEntry(e ledger.Entry) (TradeRecord, bool) {
	ev, ok := codec.DecodeTrade(e.Data)
	if !ok {
		return TradeRecord{}, false
	}
	at := e.Time
	if ev.Timestamp != 0 {
		at = time.Unix(ev.Timestamp, 0).UTC()
	}
	return TradeRecord{
		Seq:          e.Seq,
		Time:         at,
		Mint:         ev.Mint,
		Trader:       ev.Trader,
		IsBuy:        ev.IsBuy,
		SolAmount:    ev.SolAmount,
		TokenAmount:  ev.TokenAmount,
		Fee:          ev.Fee,
		VirtualSol:   ev.VirtualSol,
		VirtualToken: ev.VirtualToken,
	}, true
}

// TradeHistory returns up to limit trades of mint, newest first, older than
// the entry with sequence before (0 means from the newest). Non-trade
// records are skipped without counting against limit.
func (s *Scanner) TradeHistory(ctx context.Context, mint solana.PublicKey, limit int, before uint64) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = ledger.DefaultPageLimit
	}
	curveAddr, err := s.resolver.BondingCurveAddress(mint)
	if err != nil {
		return nil, err
	}

	out := make([]TradeRecord, 0, limit)
	skipped := 0
	for len(out) < limit {
		page, err := s.store.Entries(ctx, curveAddr, ledger.Page{Limit: limit, Before: before})
		if err != nil {
			return nil, fmt.Errorf("read log for %s: %w", mint, err)
		}
		for _, e := range page {
			before = e.Seq
			rec, ok := FromEntry(e)
			if !ok || !rec.Mint.Equals(mint) {
				skipped++
				continue
			}
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
		if len(page) < limit {
			break
		}
	}

	s.logger.Debug("Trade history scanned",
		zap.String("mint", mint.String()),
		zap.Int("trades", len(out)),
		zap.Int("skipped", skipped))
	return out, nil
}

// Summary aggregates a set of trades.
type Summary struct {
	Buys        int    `json:"buys"`
	Sells       int    `json:"sells"`
	BuyVolume   uint64 `json:"buyVolume"`  // lamports, gross
	SellVolume  uint64 `json:"sellVolume"` // lamports, gross
	TokensIn    uint64 `json:"tokensIn"`   // sold back to the curve
	TokensOut   uint64 `json:"tokensOut"`  // bought from the curve
	Fees        uint64 `json:"fees"`
	UniqueUsers int    `json:"uniqueUsers"`
}

// Summarize totals records.
func Summarize(records []TradeRecord) Summary {
	var s Summary
	users := make(map[solana.PublicKey]struct{})
	for _, r := range records {
		users[r.Trader] = struct{}{}
		s.Fees += r.Fee
		if r.IsBuy {
			s.Buys++
			s.BuyVolume += r.SolAmount
			s.TokensOut += r.TokenAmount
		} else {
			s.Sells++
			s.SellVolume += r.SolAmount
			s.TokensIn += r.TokenAmount
		}
	}
	s.UniqueUsers = len(users)
	return s
}
