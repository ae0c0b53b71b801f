package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit"
	auditdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog"
	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory"
	inventorydomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability"
	obsmiddleware "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/logger"
	obsmetrics "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	obstracing "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/tracing"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production"
	productiondomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing"
	purchasingdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/ratelimit"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales"
	salesdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	catalog.Module,
	inventory.Module,
	workflow.Module,
	production.Module,
	purchasing.Module,
	sales.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
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
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	auditSvc      auditdomain.Service
	catalogSvc    catalogdomain.Service
	inventorySvc  inventorydomain.Service
	productionSvc productiondomain.Service
	purchasingSvc purchasingdomain.Service
	salesSvc      salesdomain.Service
	bulkLimiter   *ratelimit.BulkLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	AuditSvc      auditdomain.Service
	CatalogSvc    catalogdomain.Service
	InventorySvc  inventorydomain.Service
	ProductionSvc productiondomain.Service
	PurchasingSvc purchasingdomain.Service
	SalesSvc      salesdomain.Service
	BulkLimiter   *ratelimit.BulkLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		auditSvc:      p.AuditSvc,
		catalogSvc:    p.CatalogSvc,
		inventorySvc:  p.InventorySvc,
		productionSvc: p.ProductionSvc,
		purchasingSvc: p.PurchasingSvc,
		salesSvc:      p.SalesSvc,
		bulkLimiter:   p.BulkLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(ActorFromHeaders())

	// -------- Catalog --------
	api.GET("/variants", s.ListVariants)
	api.POST("/variants", s.RequireActor(), s.CreateVariant)
	api.GET("/variants/:id", s.GetVariantByID)
	api.POST("/variants/:id/deactivate", s.RequireActor(), s.DeactivateVariant)

	// -------- Inventory --------
	api.GET("/inventory/:variant_id", s.GetInventory)
	api.GET("/inventory/sku/:sku", s.GetInventoryBySKU)
	api.GET("/inventory/:variant_id/ledger", s.ListLedger)
	api.POST("/inventory/adjust", s.RequireActor(), s.AdjustInventory)
	api.PUT("/inventory/thresholds", s.RequireActor(), s.UpdateThresholds)
	api.POST("/inventory/bulk-adjust", s.RequireActor(), s.BulkRateLimit(), s.BulkAdjustInventory)

	// -------- Production --------
	api.GET("/production/tickets", s.ListProductionTickets)
	api.POST("/production/tickets", s.RequireActor(), s.CreateProductionTicket)
	api.POST("/production/tickets/bulk", s.RequireActor(), s.BulkRateLimit(), s.BulkCreateProductionTickets)
	api.GET("/production/tickets/:id", s.GetProductionTicket)
	api.POST("/production/tickets/:id/cancel", s.RequireActor(), s.CancelProductionTicket)
	api.POST("/production/details/:id/transition", s.RequireActor(), s.TransitionProductionDetail)
	api.GET("/production/details/:id/logs", s.ListProductionStatusLogs)

	// -------- Purchasing --------
	api.GET("/purchasing/tickets", s.ListPurchasingTickets)
	api.POST("/purchasing/tickets", s.RequireActor(), s.CreatePurchasingTicket)
	api.POST("/purchasing/tickets/bulk", s.RequireActor(), s.BulkRateLimit(), s.BulkCreatePurchasingTickets)
	api.GET("/purchasing/tickets/:id", s.GetPurchasingTicket)
	api.POST("/purchasing/tickets/:id/cancel", s.RequireActor(), s.CancelPurchasingTicket)
	api.POST("/purchasing/details/:id/transition", s.RequireActor(), s.TransitionPurchasingDetail)
	api.GET("/purchasing/details/:id/logs", s.ListPurchasingStatusLogs)

	// -------- Sales --------
	api.GET("/sales/orders", s.ListSalesOrders)
	api.POST("/sales/orders", s.RequireActor(), s.CreateSalesOrder)
	api.POST("/sales/orders/bulk", s.RequireActor(), s.BulkRateLimit(), s.BulkCreateSalesOrders)
	api.GET("/sales/orders/:id", s.GetSalesOrder)
	api.POST("/sales/orders/:id/cancel", s.RequireActor(), s.CancelSalesOrder)
	api.POST("/sales/details/:id/transition", s.RequireActor(), s.TransitionSalesDetail)
	api.GET("/sales/details/:id/logs", s.ListSalesStatusLogs)

	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
