package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"blockhouse/internal/config"
	"blockhouse/internal/store"
	"blockhouse/internal/util"
)

// blockhouse-export copies stored daily bars from SQLite into the Parquet
// archive for offline analysis tooling.
func main() {
	symbols := flag.String("symbols", "", "comma-separated symbols to export (default: all stored symbols)")
	flag.Parse()

	cfgPath := "config/blockhouse.yaml"
	if p := os.Getenv("BLOCKHOUSE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	sqlStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open sqlite store: %v", err)
	}
	defer sqlStore.Close()

	archive := store.NewParquetArchive(cfg.Storage.DataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var targets []string
	if *symbols != "" {
		for _, s := range strings.Split(*symbols, ",") {
			targets = append(targets, strings.ToUpper(strings.TrimSpace(s)))
		}
	} else {
		targets, err = sqlStore.ListSymbols(ctx)
		if err != nil {
			log.Fatalf("listing symbols: %v", err)
		}
	}

	for _, symbol := range targets {
		series, err := sqlStore.ReadBars(ctx, symbol)
		if err != nil {
			log.Fatalf("reading bars for %s: %v", symbol, err)
		}
		if len(series) == 0 {
			logger.Warn("no stored bars", "symbol", symbol)
			continue
		}
		if err := archive.ExportBars(symbol, series); err != nil {
			log.Fatalf("exporting %s: %v", symbol, err)
		}
		logger.Info("exported", "symbol", symbol, "bars", len(series))
	}
}
