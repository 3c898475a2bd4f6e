package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blockhouse/internal/config"
	"blockhouse/internal/httpapi"
	"blockhouse/internal/ingest"
	"blockhouse/internal/predict"
	"blockhouse/internal/provider"
	"blockhouse/internal/provider/alpaca"
	"blockhouse/internal/provider/alphavantage"
	"blockhouse/internal/report"
	"blockhouse/internal/store"
	"blockhouse/internal/util"
)

func main() {
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

	source, err := newSource(cfg)
	if err != nil {
		log.Fatalf("failed to configure provider: %v", err)
	}

	pipeline := ingest.NewPipeline(source, sqlStore,
		ingest.WithMaxAttempts(cfg.Ingest.MaxAttempts),
		ingest.WithBackoff(cfg.Ingest.RateLimitWait.Std(), cfg.Ingest.TransientWait.Std()),
	)

	predictor := predict.NewPredictor(cfg.Predict.TrainWindow, cfg.Predict.HorizonDays)
	assembler := report.NewAssembler(sqlStore, sqlStore)

	api := httpapi.NewServer(
		pipeline,
		sqlStore,
		sqlStore,
		predictor,
		assembler,
		cfg.Backtest,
		cfg.Ingest.Timeout.Std(),
		logger,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Ingest.Timeout.Std() + 30*time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("blockhouse-server listening", "addr", addr, "provider", source.Name())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
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

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}
