// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/history"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
	applog "github.com/rovshanmuradov/launchpad/internal/utils/logger"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

// Program is the launchpad surface the API serves. Callers are named by
// public key in the request; signature checks happen in front of the service.
type Program interface {
	GetGlobal(ctx context.Context) (*launchpad.GlobalConfig, error)
	GetBondingCurve(ctx context.Context, mint solana.PublicKey) (*launchpad.BondingCurve, error)
	GetTokenMetadata(ctx context.Context, mint solana.PublicKey) (*launchpad.TokenMetadata, error)
	GetReferral(ctx context.Context, user solana.PublicKey) (*launchpad.Referral, error)
	Quote(ctx context.Context, mint solana.PublicKey, isBuy bool, amount uint64) (*launchpad.Quote, error)
	BondingCurveAddress(mint solana.PublicKey) (solana.PublicKey, error)
	ReferralAddress(user solana.PublicKey) (solana.PublicKey, error)

	CreateToken(ctx context.Context, params launchpad.CreateTokenParams) (*launchpad.BondingCurve, error)
	CreateAndBuyToken(ctx context.Context, params launchpad.CreateTokenParams, buy launchpad.BuyParams) (*launchpad.TradeResult, error)
	BuyToken(ctx context.Context, params launchpad.BuyParams) (*launchpad.TradeResult, error)
	SellToken(ctx context.Context, params launchpad.SellParams) (*launchpad.TradeResult, error)
	RegisterReferral(ctx context.Context, user solana.PublicKey) (*launchpad.Referral, error)
	ClaimReferralFees(ctx context.Context, user solana.PublicKey) (uint64, error)
	UpdateConfig(ctx context.Context, caller solana.PublicKey, patch launchpad.ConfigPatch) (*launchpad.GlobalConfig, error)
	WithdrawFees(ctx context.Context, caller solana.PublicKey) (uint64, error)
}

// TradeHistory lists decoded trades.
type TradeHistory interface {
	TradeHistory(ctx context.Context, mint solana.PublicKey, limit int, before uint64) ([]history.TradeRecord, error)
}

// Config controls the HTTP listener.
type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
	MaxPageSize     int
}

// Deps are the components the server reads from. Metrics, Gatherer and
// Stream are optional.
type Deps struct {
	Program  Program
	History  TradeHistory
	Exporter *export.Exporter
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Stream   http.Handler // websocket feed of log events
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
	ops    *applog.Logger
	router *gin.Engine
}

// NewServer builds the router.
func NewServer(cfg Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Program == nil || deps.History == nil {
		return nil, errors.New("api server requires a program and a history scanner")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 200
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewExporter(logger)
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger.Named("api")}
	s.ops = applog.Wrap(s.logger)
	s.router = s.routes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.observe())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if s.deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	g := router.Group("/v1")
	g.GET("/global", s.getGlobal)
	g.GET("/curves/:mint", s.getCurve)
	g.GET("/curves/:mint/trades", s.getTrades)
	g.GET("/curves/:mint/export", s.exportTrades)
	g.GET("/curves/:mint/quote", s.getQuote)
	g.GET("/referrals/:user", s.getReferral)

	g.POST("/curves", s.createToken)
	g.POST("/curves/:mint/buy", s.buyToken)
	g.POST("/curves/:mint/sell", s.sellToken)
	g.POST("/referrals", s.registerReferral)
	g.POST("/referrals/:user/claim", s.claimReferral)
	admin := g.Group("/admin")
	admin.PATCH("/config", s.updateConfig)
	admin.POST("/withdraw", s.withdrawFees)
	if s.deps.Stream != nil {
		g.GET("/stream", gin.WrapH(s.deps.Stream))
	}
	return router
}

// observe logs each request and records it in the collector.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		if s.deps.Metrics != nil {
			var err error
			if status >= http.StatusInternalServerError {
				err = fmt.Errorf("status %d", status)
			}
			s.deps.Metrics.RecordOperation(c.Request.Context(), "http "+c.Request.Method+" "+route, elapsed, err)
		}
		s.logger.Debug("Request served",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	}
}

// Run listens on cfg.ListenAddr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// Request contexts hang off a server-lifetime context that is cancelled once
// ordinary requests have drained; http.Server.Shutdown does not touch
// hijacked connections, so this is what ends websocket streams.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	cancelBase()
	if err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}
