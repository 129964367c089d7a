// Package server exposes the billing core over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	billingcycledomain "github.com/creatorstack/paisa/internal/billingcycle/domain"
	"github.com/creatorstack/paisa/internal/config"
	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	"github.com/creatorstack/paisa/internal/logger"
	"github.com/creatorstack/paisa/internal/observability/tracing"
	paymentdomain "github.com/creatorstack/paisa/internal/payment/domain"
	"github.com/creatorstack/paisa/internal/providers/pdf"
	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
	upgradedomain "github.com/creatorstack/paisa/internal/upgrade/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(
		NewEngine,
		NewServer,
	),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	Log      *zap.Logger
	Gatherer prometheus.Gatherer `optional:"true"`
}

// NewEngine builds the gin engine with the shared middleware chain. Route
// registration happens in NewServer.
func NewEngine(p EngineParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Log:             p.Log.Named("http"),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(tracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metricsHandler := promhttp.Handler()
	if p.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	return r
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	creatorSvc      creatordomain.Service
	creatorStore    creatordomain.Store
	selector        dealdomain.Selector
	invoiceSvc      invoicedomain.Service
	paymentSvc      paymentdomain.Service
	subscriptionSvc subscriptiondomain.Service
	cycleSvc        billingcycledomain.Service
	upgradeSvc      upgradedomain.Service
	renderer        *pdf.Renderer
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	CreatorSvc      creatordomain.Service
	CreatorStore    creatordomain.Store
	Selector        dealdomain.Selector
	InvoiceSvc      invoicedomain.Service
	PaymentSvc      paymentdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	CycleSvc        billingcycledomain.Service
	UpgradeSvc      upgradedomain.Service
	Renderer        *pdf.Renderer
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		creatorSvc:      p.CreatorSvc,
		creatorStore:    p.CreatorStore,
		selector:        p.Selector,
		invoiceSvc:      p.InvoiceSvc,
		paymentSvc:      p.PaymentSvc,
		subscriptionSvc: p.SubscriptionSvc,
		cycleSvc:        p.CycleSvc,
		upgradeSvc:      p.UpgradeSvc,
		renderer:        p.Renderer,
	}

	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// Profile bootstrap has no acting creator yet.
	api.POST("/creators", s.CreateCreator)

	authed := api.Group("", s.CreatorRequired())

	authed.GET("/me", s.GetProfile)
	authed.PUT("/me/tax-preferences", s.UpdateTaxPreferences)
	authed.PUT("/me/bank-details", s.UpdateBankDetails)

	// -------- Deals --------
	authed.POST("/deals/preview", s.PreviewEligibleDeals)

	// -------- Invoices --------
	authed.POST("/invoices", s.CreateInvoice)
	authed.GET("/invoices", s.ListInvoices)
	authed.GET("/invoices/:id", s.GetInvoiceByID)
	authed.PATCH("/invoices/:id", s.UpdateInvoice)
	authed.POST("/invoices/:id/cancel", s.CancelInvoice)
	authed.POST("/invoices/:id/send", s.SendInvoice)
	authed.POST("/invoices/:id/viewed", s.MarkInvoiceViewed)
	authed.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)

	// -------- Payments --------
	authed.POST("/invoices/:id/payments", s.RecordPayment)
	authed.GET("/invoices/:id/payments", s.ListPayments)
	authed.POST("/payments/:id/verify", s.VerifyPayment)

	// -------- Subscription --------
	authed.POST("/subscription", s.ActivateSubscription)
	authed.GET("/subscription", s.GetSubscription)
	authed.POST("/subscription/cancel", s.CancelSubscription)

	// -------- Billing cycles --------
	authed.GET("/billing-cycles", s.ListBillingCycles)
	authed.GET("/billing-cycles/current", s.GetCurrentBillingCycle)
	authed.POST("/billing-cycles/:id/pay", s.PayBillingCycle)

	// -------- Upgrades --------
	authed.POST("/upgrades", s.RequestUpgrade)
	authed.GET("/upgrades/:id", s.GetUpgrade)
	authed.POST("/upgrades/:id/apply", s.ApplyUpgrade)
	authed.POST("/upgrades/:id/cancel", s.CancelUpgrade)
}

func run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    ":" + s.cfg.HTTPPort,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			s.log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
