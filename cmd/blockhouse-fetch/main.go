package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"blockhouse/internal/config"
	"blockhouse/internal/ingest"
	"blockhouse/internal/provider"
	"blockhouse/internal/provider/alpaca"
	"blockhouse/internal/provider/alphavantage"
	"blockhouse/internal/store"
	"blockhouse/internal/util"
)

func main() {
	symbol := flag.String("symbol", "AAPL", "ticker symbol to ingest")
	providerName := flag.String("provider", "", "override configured provider (alphavantage or alpaca)")
	flag.Parse()

	cfgPath := "config/blockhouse.yaml"
	if p := os.Getenv("BLOCKHOUSE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *providerName != "" {
		cfg.Provider.Name = *providerName
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	sqlStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open sqlite store: %v", err)
	}
	defer sqlStore.Close()

	source, err := newSource(cfg)
	if err != nil {
		log.Fatalf("failed to configure provider: %v", err)
	}

	pipeline := ingest.NewPipeline(source, sqlStore,
		ingest.WithMaxAttempts(cfg.Ingest.MaxAttempts),
		ingest.WithBackoff(cfg.Ingest.RateLimitWait.Std(), cfg.Ingest.TransientWait.Std()),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, cfg.Ingest.Timeout.Std())
	defer timeoutCancel()

	count, err := pipeline.Ingest(ctx, *symbol)
	if err != nil {
		log.Fatalf("ingest failed for %s: %v", *symbol, err)
	}
	logger.Info("ingest complete", "symbol", *symbol, "bars", count)
}

func newSource(cfg *config.Config) (provider.Source, error) {
	switch cfg.Provider.Name {
	case "alphavantage":
		av := cfg.Provider.AlphaVantage
		if av.APIKey == "" {
			return nil, fmt.Errorf("alphavantage api key is not set (ALPHAVANTAGE_API_KEY)")
		}
		client := alphavantage.NewClient(av.APIKey, av.BaseURL, av.RateLimitPerMin)
		return alphavantage.NewSource(client), nil
	case "alpaca":
		ap := cfg.Provider.Alpaca
		if ap.APIKey == "" || ap.APISecret == "" {
			return nil, fmt.Errorf("alpaca credentials are not set (APCA_API_KEY_ID / APCA_API_SECRET_KEY)")
		}
		return alpaca.NewSource(ap.APIKey, ap.APISecret, ap.DataURL), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
}
