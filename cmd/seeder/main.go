// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ammerola/pos-ledger/internal/app"
	"github.com/ammerola/pos-ledger/internal/pkg/logger"
)

func main() {
	var (
		catalogPath   = flag.String("catalog", "", "Catalog workbook (.xlsx); defaults to INGEST_CATALOG_PATH")
		salesPath     = flag.String("sales", "", "Sales ledger workbook (.xlsx); defaults to INGEST_SALES_PATH")
		priceListPath = flag.String("pricelist", "", "Supplier price list (.pdf); defaults to INGEST_PRICELIST_PATH")
		skipCounters  = flag.Bool("skip-counters", false, "Do not rebuild terminal counters after ingestion")
		logLevel      = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun        = flag.Bool("dry-run", false, "Parse the files without touching the database")
	)
	flag.Parse()

	log := logger.SetupLogger(*logLevel, "json")
	ctx := context.Background()

	cfg, err := app.LoadConfig(ctx, log)
	if err != nil {
		log.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	src := app.SourcesFromConfig(cfg)
	if *catalogPath != "" {
		src.Catalog = *catalogPath
	}
	if *priceListPath != "" {
		src.PriceList = *priceListPath
	}
	if *salesPath != "" {
		src.Sales = *salesPath
	}

	var core *app.App
	if !*dryRun {
		if err := app.RunMigrations(ctx, cfg, log); err != nil {
			log.Error("failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		core, err = app.New(ctx, cfg, log, app.Options{RedisOptional: true})
		if err != nil {
			log.Error("failed to initialize dependencies", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer core.Close()
	}

	start := time.Now()
	report := app.Ingest(ctx, core, src, app.IngestOptions{
		DryRun:       *dryRun,
		SkipCounters: *skipCounters,
		Progress: func(step, total int, name, path string) {
			fmt.Printf("PROGRESS: %d/%d %s from %s\n", step, total, name, path)
		},
	}, log)

	printSummary(report, time.Since(start))

	log.Info("seed operation completed",
		slog.Int("steps", len(report.Steps)),
		slog.Int("failed_steps", report.Failed()),
		slog.Int("counters", len(report.Counters)))

	if *dryRun {
		fmt.Println("\n[DRY RUN] No changes were made to the database")
	}
	if report.Failed() > 0 {
		os.Exit(1)
	}
}

func printSummary(report app.IngestReport, elapsed time.Duration) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("INGESTION SUMMARY")
	fmt.Println(strings.Repeat("=", 60))

	if len(report.Steps) == 0 {
		fmt.Println("  nothing to ingest: pass -catalog, -sales or -pricelist")
	}
	for _, s := range report.Steps {
		if s.Err != nil {
			fmt.Printf("  %-10s FAILED   %v\n", s.Name, s.Err)
			continue
		}
		fmt.Printf("  %-10s rows=%-6d created=%-6d updated=%-6d skipped=%d\n",
			s.Name, s.Rows, s.Result.Created, s.Result.Updated, s.Result.Skipped)
	}

	if len(report.Counters) > 0 {
		fmt.Printf("\nCounters (%d terminals):\n", len(report.Counters))
		for _, c := range report.Counters {
			fmt.Printf("  - %s: last sale %d, %d sales, next client %s\n",
				c.Terminal, c.LastSaleNumber, c.TotalSales, c.NextClientID)
		}
	}

	fmt.Printf("\nElapsed: %s\n", elapsed.Round(time.Millisecond))
}
