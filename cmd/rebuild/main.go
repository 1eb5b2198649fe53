// Package main is a maintenance tool that verifies or rebuilds ledger
// summaries from a full movement replay.
//
// Usage:
//
//	rebuild -sku WIDGET-01            # verify one SKU
//	rebuild -sku WIDGET-01 -write     # rebuild one SKU
//	rebuild -all -write               # rebuild every known summary
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"fieldstock/internal/domain/ledger"
	"fieldstock/internal/infrastructure/storage/postgres"
	"fieldstock/internal/infrastructure/storage/postgres/ledger_repo"
	"fieldstock/pkg/config"
	"fieldstock/pkg/logger"
)

func main() {
	var (
		sku   = flag.String("sku", "", "single SKU to check")
		all   = flag.Bool("all", false, "process every stored summary")
		write = flag.Bool("write", false, "overwrite drifted summaries instead of reporting only")
	)
	flag.Parse()

	if *sku == "" && !*all {
		fmt.Println("either -sku or -all is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.Development()})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	repo := ledger_repo.NewLedgerRepo(txManager)
	service := ledger.NewService(repo, txManager)

	skus := []string{*sku}
	if *all {
		summaries, err := repo.ListSummaries(ctx, ledger.SummaryFilter{})
		if err != nil {
			log.Fatalw("failed to list summaries", "error", err)
		}
		skus = skus[:0]
		for _, s := range summaries {
			skus = append(skus, s.SKU)
		}
	}

	drifted := 0
	for _, s := range skus {
		var (
			result ledger.RebuildResult
			err    error
		)
		if *write {
			result, err = service.RebuildSummary(ctx, s)
		} else {
			result, err = service.VerifySummary(ctx, s)
		}
		if err != nil {
			log.Errorw("summary check failed", "sku", s, "error", err)
			continue
		}

		if result.Drifted {
			drifted++
			log.Warnw("summary drift",
				"sku", s,
				"stored_available", result.Prior.AvailableQty.Float64(),
				"replayed_available", result.Rebuilt.AvailableQty.Float64(),
				"entries", result.Replayed.Count,
				"repaired", *write,
			)
		} else {
			log.Infow("summary consistent", "sku", s, "entries", result.Replayed.Count)
		}
	}

	log.Infow("done", "checked", len(skus), "drifted", drifted)
	if drifted > 0 && !*write {
		os.Exit(1)
	}
}
