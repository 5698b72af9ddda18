// Package server exposes the billing core over HTTP. Callers are trusted
// collaborators (the agent loop, the dashboard payout action) that supply
// already-authenticated account identifiers.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/principalgrid/billing/internal/clock"
	"github.com/principalgrid/billing/internal/config"
	"github.com/principalgrid/billing/internal/funding"
	fundingdomain "github.com/principalgrid/billing/internal/funding/domain"
	"github.com/principalgrid/billing/internal/ledger"
	obsmetrics "github.com/principalgrid/billing/internal/observability/metrics"
	"github.com/principalgrid/billing/internal/payment"
	"github.com/principalgrid/billing/internal/payout"
	payoutdomain "github.com/principalgrid/billing/internal/payout/domain"
	"github.com/principalgrid/billing/internal/usage"
	usagedomain "github.com/principalgrid/billing/internal/usage/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	obsmetrics.Module,
	ledger.Module,
	payment.Module,
	funding.Module,
	usage.Module,
	payout.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	clock      clock.Clock
	ledgerSvc  ledger.Service
	usageSvc   usagedomain.Service
	fundingSvc fundingdomain.Service
	payoutSvc  payoutdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Clock      clock.Clock
	LedgerSvc  ledger.Service
	UsageSvc   usagedomain.Service
	FundingSvc fundingdomain.Service
	PayoutSvc  payoutdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		clock:      p.Clock,
		ledgerSvc:  p.LedgerSvc,
		usageSvc:   p.UsageSvc,
		fundingSvc: p.FundingSvc,
		payoutSvc:  p.PayoutSvc,
	}
}

func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/usage", s.RecordUsage)
	v1.GET("/usage", s.ListUsage)
	v1.GET("/usage/monthly-spend", s.MonthlySpend)
	v1.POST("/accounts/:id/ensure-funded", s.EnsureFunded)
	v1.GET("/accounts/:id/balance", s.AccountBalance)
	v1.PUT("/accounts/:id/billing-config", s.UpsertBillingConfig)
	v1.POST("/payouts", s.ProcessPayout)
	v1.GET("/payouts", s.ListPayouts)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
