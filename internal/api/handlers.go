// internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusOf maps an error to an HTTP status by its protocol kind.
func statusOf(err error) int {
	if errors.Is(err, errBadRequest) {
		return http.StatusBadRequest
	}
	switch launchpad.KindOf(err) {
	case launchpad.KindNotFound:
		return http.StatusNotFound
	case launchpad.KindValidation:
		return http.StatusBadRequest
	case launchpad.KindState:
		return http.StatusConflict
	case launchpad.KindAuthorization:
		return http.StatusForbidden
	case launchpad.KindMath:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	body := errorResponse{Error: err.Error()}
	if pe, ok := launchpad.AsError(err); ok {
		body.Code, body.Name = pe.Code, pe.Name
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func pubkeyParam(c *gin.Context, name string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(c.Param(name))
	if err != nil {
		return solana.PublicKey{}, badRequest("invalid %s %q", name, c.Param(name))
	}
	return key, nil
}

func uintQuery(c *gin.Context, name string, def uint64) (uint64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return v, nil
}

func (s *Server) getGlobal(c *gin.Context) {
	g, err := s.deps.Program.GetGlobal(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newGlobalResponse(g))
}

func (s *Server) getCurve(c *gin.Context) {
	mint, err := pubkeyParam(c, "mint")
	if err != nil {
		s.fail(c, err)
		return
	}
	body, err := s.curveView(c.Request.Context(), mint)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

// curveView assembles the curve with its display values and metadata.
func (s *Server) curveView(ctx context.Context, mint solana.PublicKey) (curveResponse, error) {
	curve, err := s.deps.Program.GetBondingCurve(ctx, mint)
	if err != nil {
		return curveResponse{}, err
	}
	g, err := s.deps.Program.GetGlobal(ctx)
	if err != nil {
		return curveResponse{}, err
	}
	md, err := s.deps.Program.GetTokenMetadata(ctx, mint)
	if err != nil && launchpad.KindOf(err) != launchpad.KindNotFound {
		return curveResponse{}, err
	}
	addr, err := s.deps.Program.BondingCurveAddress(mint)
	if err != nil {
		return curveResponse{}, err
	}
	return newCurveResponse(addr.String(), curve, g, md), nil
}

func (s *Server) pageParams(c *gin.Context) (int, uint64, error) {
	limit, err := uintQuery(c, "limit", 50)
	if err != nil {
		return 0, 0, err
	}
	if limit == 0 || limit > uint64(s.cfg.MaxPageSize) {
		return 0, 0, badRequest("limit must be in [1, %d]", s.cfg.MaxPageSize)
	}
	before, err := uintQuery(c, "before", 0)
	if err != nil {
		return 0, 0, err
	}
	return int(limit), before, nil
}

func (s *Server) getTrades(c *gin.Context) {
	mint, err := pubkeyParam(c, "mint")
	if err != nil {
		s.fail(c, err)
		return
	}
	limit, before, err := s.pageParams(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	records, err := s.deps.History.TradeHistory(c.Request.Context(), mint, limit, before)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTradesResponse(records, limit))
}

func (s *Server) exportTrades(c *gin.Context) {
	mint, err := pubkeyParam(c, "mint")
	if err != nil {
		s.fail(c, err)
		return
	}
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		s.fail(c, badRequest("%v", err))
		return
	}
	limit, before, err := s.pageParams(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	side := c.Query("side")
	if side != "" && side != "buy" && side != "sell" {
		s.fail(c, badRequest("invalid side %q", side))
		return
	}
	records, err := s.deps.History.TradeHistory(c.Request.Context(), mint, limit, before)
	if err != nil {
		s.fail(c, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == export.FormatJSON {
		contentType = "application/json; charset=utf-8"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := s.deps.Exporter.Write(c.Writer, records, export.Options{Format: format, Side: side}); err != nil {
		s.logger.Error("Export failed", zap.String("mint", mint.String()), zap.Error(err))
	}
}

func (s *Server) getQuote(c *gin.Context) {
	ctx := c.Request.Context()
	mint, err := pubkeyParam(c, "mint")
	if err != nil {
		s.fail(c, err)
		return
	}
	var isBuy bool
	switch side := c.Query("side"); side {
	case "buy":
		isBuy = true
	case "sell":
	default:
		s.fail(c, badRequest("side must be buy or sell, got %q", side))
		return
	}
	amount, err := uintQuery(c, "amount", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	_, withSlippage := c.GetQuery("slippageBps")
	slippageBps, err := uintQuery(c, "slippageBps", 0)
	if err != nil {
		s.fail(c, err)
		return
	}

	q, err := s.deps.Program.Quote(ctx, mint, isBuy, amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	g, err := s.deps.Program.GetGlobal(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	body := newQuoteResponse(q, g.TokenDecimals)
	if withSlippage {
		minOut, err := launchpad.MinAmountOut(q.AmountOut, launchpad.SlippageConfig{Type: launchpad.SlippageBps, Value: slippageBps})
		if err != nil {
			s.fail(c, err)
			return
		}
		body.MinAmountOut = u64(minOut)
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) getReferral(c *gin.Context) {
	user, err := pubkeyParam(c, "user")
	if err != nil {
		s.fail(c, err)
		return
	}
	ref, err := s.deps.Program.GetReferral(c.Request.Context(), user)
	if err != nil {
		s.fail(c, err)
		return
	}
	addr, err := s.deps.Program.ReferralAddress(user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newReferralResponse(addr, ref))
}
