// Package main is the entry point for the fieldstock API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/domain/checkout"
	"fieldstock/internal/domain/discrepancy"
	"fieldstock/internal/domain/ledger"
	"fieldstock/internal/domain/reports"
	"fieldstock/internal/domain/syncrun"
	v1 "fieldstock/internal/infrastructure/http/v1"
	"fieldstock/internal/infrastructure/storage/postgres"
	"fieldstock/internal/infrastructure/storage/postgres/catalog_repo"
	"fieldstock/internal/infrastructure/storage/postgres/checkout_repo"
	"fieldstock/internal/infrastructure/storage/postgres/discrepancy_repo"
	"fieldstock/internal/infrastructure/storage/postgres/invoice_repo"
	"fieldstock/internal/infrastructure/storage/postgres/ledger_repo"
	"fieldstock/internal/infrastructure/storage/postgres/report_repo"
	"fieldstock/internal/infrastructure/storage/postgres/syncrun_repo"
	"fieldstock/pkg/config"
	"fieldstock/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting fieldstock server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.MaxConnLifetime = cfg.DBConnLifetime
	poolCfg.MaxConnIdleTime = cfg.DBConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	ledgerRepo := ledger_repo.NewLedgerRepo(txManager)
	checkoutRepo := checkout_repo.NewCheckoutRepo(txManager)
	discrepancyRepo := discrepancy_repo.NewDiscrepancyRepo(txManager)
	invoiceRepo := invoice_repo.NewInvoiceRepo(txManager)
	syncRunRepo := syncrun_repo.NewSyncRunRepo(txManager)
	aliasRepo := catalog_repo.NewAliasRepo(txManager)
	reportRepo := report_repo.NewReportRepo(txManager)

	// --- Services ---
	aliasService := catalog.NewService(aliasRepo)
	if err := aliasService.Reload(ctx); err != nil {
		log.Fatalw("failed to load alias snapshot", "error", err)
	}

	ledgerService := ledger.NewService(ledgerRepo, txManager)
	checkoutService := checkout.NewService(
		checkoutRepo,
		ledgerService,
		invoiceRepo,
		nil, // no remote invoice detail fetcher configured
		aliasService,
		txManager,
	)
	discrepancyService := discrepancy.NewService(discrepancyRepo)
	syncRunService := syncrun.NewService(syncRunRepo, invoiceRepo, ledgerService, aliasService, txManager)
	reportsService := reports.NewService(reportRepo)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:          pool,
		Logger:        log,
		Ledger:        ledgerService,
		Checkouts:     checkoutService,
		Discrepancies: discrepancyService,
		SyncRuns:      syncRunService,
		Aliases:       aliasService,
		Reports:       reportsService,
		Development:   cfg.Development(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
