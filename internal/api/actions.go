// internal/api/actions.go
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

// Write endpoints. The caller's wallet travels in the body as a base58 key.

type createTokenRequest struct {
	Creator string `json:"creator"`
	Mint    string `json:"mint,omitempty"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	URI     string `json:"uri"`
	// Optional initial buy, executed atomically with the launch.
	BuySol       uint64 `json:"buySol,string,omitempty"`
	MinTokensOut uint64 `json:"minTokensOut,string,omitempty"`
	Buyer        string `json:"buyer,omitempty"`
	Referrer     string `json:"referrer,omitempty"`
}

type buyRequest struct {
	Buyer        string                    `json:"buyer"`
	SolAmount    uint64                    `json:"solAmount,string"`
	MinTokensOut uint64                    `json:"minTokensOut,string,omitempty"`
	Slippage     *launchpad.SlippageConfig `json:"slippage,omitempty"`
	Referrer     string                    `json:"referrer,omitempty"`
}

type sellRequest struct {
	Seller      string                    `json:"seller"`
	TokenAmount uint64                    `json:"tokenAmount,string"`
	MinSolOut   uint64                    `json:"minSolOut,string,omitempty"`
	Slippage    *launchpad.SlippageConfig `json:"slippage,omitempty"`
	Referrer    string                    `json:"referrer,omitempty"`
}

type referralRequest struct {
	User string `json:"user"`
}

type callerRequest struct {
	Caller string `json:"caller"`
}

// configRequest mirrors ConfigPatch: absent fields keep their value. Lamport
// and token amounts are decimal strings like everywhere else in the API.
type configRequest struct {
	Caller              string  `json:"caller"`
	FeeReceiver         *string `json:"feeReceiver,omitempty"`
	InitialVirtualSol   *string `json:"initialVirtualSol,omitempty"`
	InitialVirtualToken *string `json:"initialVirtualToken,omitempty"`
	InitialRealToken    *string `json:"initialRealToken,omitempty"`
	TokenTotalSupply    *string `json:"tokenTotalSupply,omitempty"`
	TradeFeeBps         *uint16 `json:"tradeFeeBps,omitempty"`
	CreatorShareBps     *uint16 `json:"creatorShareBps,omitempty"`
	ReferralShareBps    *uint16 `json:"referralShareBps,omitempty"`
	GraduationThreshold *string `json:"graduationThreshold,omitempty"`
	Status              *string `json:"status,omitempty"`
}

func keyField(name, raw string) (solana.PublicKey, error) {
	if raw == "" {
		return solana.PublicKey{}, badRequest("%s is required", name)
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, badRequest("invalid %s %q", name, raw)
	}
	return key, nil
}

// optionalKey returns the zero key for an empty field.
func optionalKey(name, raw string) (solana.PublicKey, error) {
	if raw == "" {
		return solana.PublicKey{}, nil
	}
	return keyField(name, raw)
}

func optionalAmount(name string, raw *string) (*uint64, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseUint(*raw, 10, 64)
	if err != nil {
		return nil, badRequest("invalid %s %q", name, *raw)
	}
	return &v, nil
}

func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, badRequest("invalid body: %v", err))
		return false
	}
	return true
}

// minOut returns explicit when set; otherwise it derives the floor from a
// fresh quote and the slippage policy.
func (s *Server) minOut(ctx context.Context, mint solana.PublicKey, isBuy bool, amount, explicit uint64, slip *launchpad.SlippageConfig) (uint64, error) {
	if explicit > 0 || slip == nil {
		return explicit, nil
	}
	q, err := s.deps.Program.Quote(ctx, mint, isBuy, amount)
	if err != nil {
		return 0, err
	}
	out, err := launchpad.MinAmountOut(q.AmountOut, *slip)
	if err != nil {
		if _, ok := launchpad.AsError(err); !ok {
			return 0, badRequest("%v", err)
		}
		return 0, err
	}
	return out, nil
}

func (s *Server) createToken(c *gin.Context) {
	defer s.ops.TrackPerformance("create_token")()
	ctx := c.Request.Context()

	var req createTokenRequest
	if !s.bind(c, &req) {
		return
	}
	creator, err := keyField("creator", req.Creator)
	if err != nil {
		s.fail(c, err)
		return
	}
	mint, err := optionalKey("mint", req.Mint)
	if err != nil {
		s.fail(c, err)
		return
	}
	params := launchpad.CreateTokenParams{Mint: mint, Creator: creator, Name: req.Name, Symbol: req.Symbol, URI: req.URI}

	resp := createResponse{}
	if req.BuySol > 0 {
		buyer, err := optionalKey("buyer", req.Buyer)
		if err != nil {
			s.fail(c, err)
			return
		}
		referrer, err := optionalKey("referrer", req.Referrer)
		if err != nil {
			s.fail(c, err)
			return
		}
		res, err := s.deps.Program.CreateAndBuyToken(ctx, params, launchpad.BuyParams{
			Buyer:        buyer,
			SolAmount:    req.BuySol,
			MinTokensOut: req.MinTokensOut,
			Referrer:     referrer,
		})
		if err != nil {
			s.fail(c, err)
			return
		}
		trade := newTradeResultResponse(res)
		resp.Trade = &trade
		mint = res.Mint
	} else {
		created, err := s.deps.Program.CreateToken(ctx, params)
		if err != nil {
			s.fail(c, err)
			return
		}
		mint = created.Mint
	}

	if resp.Curve, err = s.curveView(ctx, mint); err != nil {
		s.fail(c, err)
		return
	}
	s.ops.WithMint(mint).Info("Token launched via API",
		zap.String("creator", creator.String()),
		zap.Bool("initial_buy", resp.Trade != nil))
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) buyToken(c *gin.Context) {
	defer s.ops.TrackPerformance("buy")()
	ctx := c.Request.Context()

	mint, err := pubkeyParam(c, "mint")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req buyRequest
	if !s.bind(c, &req) {
		return
	}
	buyer, err := keyField("buyer", req.Buyer)
	if err != nil {
		s.fail(c, err)
		return
	}
	referrer, err := optionalKey("referrer", req.Referrer)
	if err != nil {
		s.fail(c, err)
		return
	}
	minTokens, err := s.minOut(ctx, mint, true, req.SolAmount, req.MinTokensOut, req.Slippage)
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.deps.Program.BuyToken(ctx, launchpad.BuyParams{
		Mint:         mint,
		Buyer:        buyer,
		SolAmount:    req.SolAmount,
		MinTokensOut: minTokens,
		Referrer:     referrer,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ops.WithMint(mint).Info("Buy executed via API",
		zap.String("buyer", buyer.String()),
		zap.Uint64("sol_amount", res.SolAmount),
		zap.Uint64("token_amount", res.TokenAmount))
	c.JSON(http.StatusOK, newTradeResultResponse(res))
}

func (s *Server) sellToken(c *gin.Context) {
	defer s.ops.TrackPerformance("sell")()
	ctx := c.Request.Context()

	mint, err := pubkeyParam(c, "mint")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req sellRequest
	if !s.bind(c, &req) {
		return
	}
	seller, err := keyField("seller", req.Seller)
	if err != nil {
		s.fail(c, err)
		return
	}
	referrer, err := optionalKey("referrer", req.Referrer)
	if err != nil {
		s.fail(c, err)
		return
	}
	minSol, err := s.minOut(ctx, mint, false, req.TokenAmount, req.MinSolOut, req.Slippage)
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.deps.Program.SellToken(ctx, launchpad.SellParams{
		Mint:        mint,
		Seller:      seller,
		TokenAmount: req.TokenAmount,
		MinSolOut:   minSol,
		Referrer:    referrer,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ops.WithMint(mint).Info("Sell executed via API",
		zap.String("seller", seller.String()),
		zap.Uint64("token_amount", res.TokenAmount),
		zap.Uint64("sol_out", res.NetSol()))
	c.JSON(http.StatusOK, newTradeResultResponse(res))
}

func (s *Server) registerReferral(c *gin.Context) {
	defer s.ops.TrackPerformance("register_referral")()
	ctx := c.Request.Context()

	var req referralRequest
	if !s.bind(c, &req) {
		return
	}
	user, err := keyField("user", req.User)
	if err != nil {
		s.fail(c, err)
		return
	}
	ref, err := s.deps.Program.RegisterReferral(ctx, user)
	if err != nil {
		s.fail(c, err)
		return
	}
	addr, err := s.deps.Program.ReferralAddress(user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReferralResponse(addr, ref))
}

func (s *Server) claimReferral(c *gin.Context) {
	defer s.ops.TrackPerformance("claim_referral")()

	user, err := pubkeyParam(c, "user")
	if err != nil {
		s.fail(c, err)
		return
	}
	paid, err := s.deps.Program.ClaimReferralFees(c.Request.Context(), user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, amountResponse{Amount: u64(paid)})
}

func (s *Server) updateConfig(c *gin.Context) {
	defer s.ops.TrackPerformance("update_config")()

	var req configRequest
	if !s.bind(c, &req) {
		return
	}
	caller, err := keyField("caller", req.Caller)
	if err != nil {
		s.fail(c, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.fail(c, err)
		return
	}
	g, err := s.deps.Program.UpdateConfig(c.Request.Context(), caller, patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newGlobalResponse(g))
}

func (r configRequest) patch() (launchpad.ConfigPatch, error) {
	patch := launchpad.ConfigPatch{
		TradeFeeBps:      r.TradeFeeBps,
		CreatorShareBps:  r.CreatorShareBps,
		ReferralShareBps: r.ReferralShareBps,
	}
	if r.FeeReceiver != nil {
		key, err := keyField("feeReceiver", *r.FeeReceiver)
		if err != nil {
			return patch, err
		}
		patch.FeeReceiver = &key
	}
	amounts := []struct {
		name string
		raw  *string
		dst  **uint64
	}{
		{"initialVirtualSol", r.InitialVirtualSol, &patch.InitialVirtualSol},
		{"initialVirtualToken", r.InitialVirtualToken, &patch.InitialVirtualToken},
		{"initialRealToken", r.InitialRealToken, &patch.InitialRealToken},
		{"tokenTotalSupply", r.TokenTotalSupply, &patch.TokenTotalSupply},
		{"graduationThreshold", r.GraduationThreshold, &patch.GraduationThreshold},
	}
	for _, a := range amounts {
		v, err := optionalAmount(a.name, a.raw)
		if err != nil {
			return patch, err
		}
		*a.dst = v
	}
	if r.Status != nil {
		st, err := launchpad.ParseProgramStatus(*r.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &st
	}
	return patch, nil
}

func (s *Server) withdrawFees(c *gin.Context) {
	defer s.ops.TrackPerformance("withdraw_fees")()

	var req callerRequest
	if !s.bind(c, &req) {
		return
	}
	caller, err := keyField("caller", req.Caller)
	if err != nil {
		s.fail(c, err)
		return
	}
	amount, err := s.deps.Program.WithdrawFees(c.Request.Context(), caller)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, amountResponse{Amount: u64(amount)})
}
