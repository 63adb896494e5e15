package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/salesdesk/internal/account"
	accountdomain "github.com/smallbiznis/salesdesk/internal/account/domain"
	"github.com/smallbiznis/salesdesk/internal/catalog"
	"github.com/smallbiznis/salesdesk/internal/config"
	"github.com/smallbiznis/salesdesk/internal/exchangerate"
	"github.com/smallbiznis/salesdesk/internal/invoice"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/salesdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/salesdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/salesdesk/internal/observability/tracing"
	"github.com/smallbiznis/salesdesk/internal/tax"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	tax.Module,
	catalog.Module,
	exchangerate.Module,
	account.Module,
	invoice.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, editorMetrics *obsmetrics.EditorMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(editorMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, editorMetrics *obsmetrics.EditorMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, editorMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	invoiceSvc invoicedomain.Service
	accounts   accountdomain.Directory
	taxSvc     taxdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	InvoiceSvc invoicedomain.Service
	Accounts   accountdomain.Directory
	TaxSvc     taxdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		invoiceSvc: p.InvoiceSvc,
		accounts:   p.Accounts,
		taxSvc:     p.TaxSvc,
	}

	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.OrgContext())

	// -------- Invoice sessions --------
	sessions := api.Group("/invoice-sessions")
	sessions.POST("", s.OpenInvoiceSession)
	sessions.GET("/:id", s.GetInvoiceSession)
	sessions.DELETE("/:id", s.CloseInvoiceSession)

	sessions.POST("/:id/rows", s.AddInvoiceRow)
	sessions.DELETE("/:id/rows/:rowId", s.RemoveInvoiceRow)
	sessions.PUT("/:id/rows/:rowId/item", s.SelectInvoiceItem)
	sessions.POST("/:id/rows/:rowId/fields/:field/focus", s.FocusInvoiceField)
	sessions.PUT("/:id/rows/:rowId/fields/:field", s.EditInvoiceField)
	sessions.POST("/:id/rows/:rowId/fields/:field/blur", s.BlurInvoiceField)

	sessions.PUT("/:id/currency", s.ChangeInvoiceCurrency)
	sessions.PUT("/:id/exchange-rate", s.EditInvoiceExchangeRate)

	sessions.PUT("/:id/adjustment", s.EditInvoiceAdjustment)
	sessions.POST("/:id/adjustment/focus", s.FocusInvoiceAdjustment)
	sessions.PUT("/:id/adjustment/text", s.EditInvoiceAdjustmentText)
	sessions.POST("/:id/adjustment/blur", s.BlurInvoiceAdjustment)

	sessions.POST("/:id/submit", s.SubmitInvoiceSession)
	sessions.GET("/:id/pdf", s.RenderInvoiceSessionPDF)

	// -------- Accounts --------
	api.GET("/accounts/options", s.ListAccountOptions)

	// -------- Tax configuration --------
	api.GET("/tax-config", s.GetTaxConfig)
	api.PUT("/tax-config", s.UpsertTaxConfig)
	api.DELETE("/tax-config", s.DisableTaxConfig)
}
