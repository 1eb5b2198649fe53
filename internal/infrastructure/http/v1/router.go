// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/domain/checkout"
	"fieldstock/internal/domain/discrepancy"
	"fieldstock/internal/domain/ledger"
	"fieldstock/internal/domain/reports"
	"fieldstock/internal/domain/syncrun"
	"fieldstock/internal/infrastructure/http/v1/handlers"
	"fieldstock/internal/infrastructure/http/v1/middleware"
	"fieldstock/internal/infrastructure/storage/postgres"
	"fieldstock/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	Ledger        *ledger.Service
	Checkouts     *checkout.Service
	Discrepancies *discrepancy.Service
	SyncRuns      *syncrun.Service
	Aliases       *catalog.Service
	Reports       *reports.Service

	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	// API v1
	api := router.Group("/api/v1")
	{
		handlers.NewLedgerHandler(base, cfg.Ledger).RegisterRoutes(api.Group("/ledger"))
		handlers.NewCheckoutHandler(base, cfg.Checkouts).RegisterRoutes(api.Group("/checkouts"))
		handlers.NewDiscrepancyHandler(base, cfg.Discrepancies).RegisterRoutes(api.Group("/discrepancies"))
		handlers.NewSyncRunHandler(base, cfg.SyncRuns).RegisterRoutes(api.Group("/sync-runs"))
		handlers.NewAliasHandler(base, cfg.Aliases).RegisterRoutes(api.Group("/aliases"))
		handlers.NewReportsHandler(base, cfg.Reports).RegisterRoutes(api.Group("/reports"))
	}

	return router
}
