// internal/api/dto.go
package api

import (
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/history"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

// Amounts are serialised as integer strings so JavaScript clients do not
// lose precision above 2^53.

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

type globalResponse struct {
	Authority           string `json:"authority"`
	FeeReceiver         string `json:"feeReceiver"`
	InitialVirtualSol   string `json:"initialVirtualSol"`
	InitialVirtualToken string `json:"initialVirtualToken"`
	InitialRealToken    string `json:"initialRealToken"`
	TokenTotalSupply    string `json:"tokenTotalSupply"`
	TokenDecimals       uint8  `json:"tokenDecimals"`
	TradeFeeBps         uint16 `json:"tradeFeeBps"`
	CreatorShareBps     uint16 `json:"creatorShareBps"`
	ReferralShareBps    uint16 `json:"referralShareBps"`
	GraduationThreshold string `json:"graduationThreshold"`
	Status              string `json:"status"`
}

func newGlobalResponse(g *launchpad.GlobalConfig) globalResponse {
	return globalResponse{
		Authority:           g.Authority.String(),
		FeeReceiver:         g.FeeReceiver.String(),
		InitialVirtualSol:   u64(g.InitialVirtualSol),
		InitialVirtualToken: u64(g.InitialVirtualToken),
		InitialRealToken:    u64(g.InitialRealToken),
		TokenTotalSupply:    u64(g.TokenTotalSupply),
		TokenDecimals:       g.TokenDecimals,
		TradeFeeBps:         g.TradeFeeBps,
		CreatorShareBps:     g.CreatorShareBps,
		ReferralShareBps:    g.ReferralShareBps,
		GraduationThreshold: u64(g.GraduationThreshold),
		Status:              g.Status.String(),
	}
}

type metadataResponse struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	URI      string `json:"uri"`
	Decimals uint8  `json:"decimals"`
}

type curveResponse struct {
	Mint             string            `json:"mint"`
	BondingCurve     string            `json:"bondingCurve"`
	Creator          string            `json:"creator"`
	VirtualSol       string            `json:"virtualSol"`
	VirtualToken     string            `json:"virtualToken"`
	RealToken        string            `json:"realToken"`
	RealSolReserves  string            `json:"realSolReserves"`
	TokenTotalSupply string            `json:"tokenTotalSupply"`
	StartTime        time.Time         `json:"startTime"`
	Completed        bool              `json:"completed"`
	Migrated         bool              `json:"migrated"`
	PriceSol         string            `json:"priceSol"`
	MarketCapSol     string            `json:"marketCapSol"`
	Progress         string            `json:"progress"`
	Metadata         *metadataResponse `json:"metadata,omitempty"`
}

func newCurveResponse(addr string, c *launchpad.BondingCurve, g *launchpad.GlobalConfig, md *launchpad.TokenMetadata) curveResponse {
	decimals := g.TokenDecimals
	if md != nil {
		decimals = md.Decimals
	}
	r := curveResponse{
		Mint:             c.Mint.String(),
		BondingCurve:     addr,
		Creator:          c.Creator.String(),
		VirtualSol:       u64(c.VirtualSol),
		VirtualToken:     u64(c.VirtualToken),
		RealToken:        u64(c.RealToken),
		RealSolReserves:  u64(c.RealSolReserves),
		TokenTotalSupply: u64(c.TokenTotalSupply),
		StartTime:        time.Unix(c.StartTime, 0).UTC(),
		Completed:        c.Completed,
		Migrated:         c.Migrated,
		PriceSol:         launchpad.SpotPrice(c, decimals).StringFixed(12),
		MarketCapSol:     launchpad.MarketCapSol(c, decimals).StringFixed(4),
		Progress:         launchpad.Progress(c, g.GraduationThreshold).String(),
	}
	if md != nil {
		r.Metadata = &metadataResponse{Name: md.Name, Symbol: md.Symbol, URI: md.URI, Decimals: md.Decimals}
	}
	return r
}

type tradeResponse struct {
	Seq          uint64    `json:"seq"`
	Time         time.Time `json:"time"`
	Trader       string    `json:"trader"`
	Side         string    `json:"side"`
	SolAmount    string    `json:"solAmount"`
	TokenAmount  string    `json:"tokenAmount"`
	Fee          string    `json:"fee"`
	VirtualSol   string    `json:"virtualSol"`
	VirtualToken string    `json:"virtualToken"`
}

type tradesResponse struct {
	Trades []tradeResponse `json:"trades"`
	// Next is the cursor for the following page, absent on the last one.
	Next *uint64 `json:"next,omitempty"`
}

func newTradesResponse(records []history.TradeRecord, limit int) tradesResponse {
	out := tradesResponse{Trades: make([]tradeResponse, len(records))}
	for i, r := range records {
		out.Trades[i] = tradeResponse{
			Seq:          r.Seq,
			Time:         r.Time,
			Trader:       r.Trader.String(),
			Side:         r.Side(),
			SolAmount:    u64(r.SolAmount),
			TokenAmount:  u64(r.TokenAmount),
			Fee:          u64(r.Fee),
			VirtualSol:   u64(r.VirtualSol),
			VirtualToken: u64(r.VirtualToken),
		}
	}
	if len(records) == limit && limit > 0 {
		next := records[len(records)-1].Seq
		out.Next = &next
	}
	return out
}

type quoteResponse struct {
	Side         string `json:"side"`
	AmountIn     string `json:"amountIn"`
	AmountOut    string `json:"amountOut"`
	Fee          string `json:"fee"`
	CreatorFee   string `json:"creatorFee"`
	ProtocolFee  string `json:"protocolFee"`
	PriceAfter   string `json:"priceAfterSol"`
	Completes    bool   `json:"completes"`
	VirtualSol   string `json:"virtualSolAfter"`
	VirtualToken string `json:"virtualTokenAfter"`
	MinAmountOut string `json:"minAmountOut,omitempty"`
}

func newQuoteResponse(q *launchpad.Quote, decimals uint8) quoteResponse {
	side := "sell"
	if q.IsBuy {
		side = "buy"
	}
	return quoteResponse{
		Side:         side,
		AmountIn:     u64(q.AmountIn),
		AmountOut:    u64(q.AmountOut),
		Fee:          u64(q.Fees.Total),
		CreatorFee:   u64(q.Fees.Creator),
		ProtocolFee:  u64(q.Fees.Protocol),
		PriceAfter:   launchpad.SpotPrice(&q.After, decimals).StringFixed(12),
		Completes:    q.Completes,
		VirtualSol:   u64(q.After.VirtualSol),
		VirtualToken: u64(q.After.VirtualToken),
	}
}

type referralResponse struct {
	Referrer     string `json:"referrer"`
	Account      string `json:"account"`
	TotalEarned  string `json:"totalEarned"`
	Claimable    string `json:"claimable"`
	TotalClaimed string `json:"totalClaimed"`
	TradeCount   uint64 `json:"tradeCount"`
}

func newReferralResponse(addr solana.PublicKey, ref *launchpad.Referral) referralResponse {
	return referralResponse{
		Referrer:     ref.Referrer.String(),
		Account:      addr.String(),
		TotalEarned:  u64(ref.TotalEarned),
		Claimable:    u64(ref.Claimable),
		TotalClaimed: u64(ref.TotalClaimed),
		TradeCount:   ref.TradeCount,
	}
}

type tradeResultResponse struct {
	Mint            string `json:"mint"`
	Trader          string `json:"trader"`
	Side            string `json:"side"`
	SolAmount       string `json:"solAmount"`
	NetSol          string `json:"netSol"`
	TokenAmount     string `json:"tokenAmount"`
	Fee             string `json:"fee"`
	CreatorFee      string `json:"creatorFee"`
	ReferralFee     string `json:"referralFee"`
	ProtocolFee     string `json:"protocolFee"`
	RealSolReserves string `json:"realSolReserves"`
	RealToken       string `json:"realToken"`
	Completed       bool   `json:"completed"`
}

func newTradeResultResponse(r *launchpad.TradeResult) tradeResultResponse {
	side := "sell"
	if r.IsBuy {
		side = "buy"
	}
	return tradeResultResponse{
		Mint:            r.Mint.String(),
		Trader:          r.Trader.String(),
		Side:            side,
		SolAmount:       u64(r.SolAmount),
		NetSol:          u64(r.NetSol()),
		TokenAmount:     u64(r.TokenAmount),
		Fee:             u64(r.Fees.Total),
		CreatorFee:      u64(r.Fees.Creator),
		ReferralFee:     u64(r.Fees.Referral),
		ProtocolFee:     u64(r.Fees.Protocol),
		RealSolReserves: u64(r.Curve.RealSolReserves),
		RealToken:       u64(r.Curve.RealToken),
		Completed:       r.Completed,
	}
}

type createResponse struct {
	Curve curveResponse        `json:"curve"`
	Trade *tradeResultResponse `json:"trade,omitempty"`
}

type amountResponse struct {
	Amount string `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  uint32 `json:"code,omitempty"`
	Name  string `json:"name,omitempty"`
}
