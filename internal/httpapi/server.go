// Package httpapi exposes the fetch, backtest, predict, and report endpoints
// over HTTP with JSON responses.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"blockhouse/internal/backtest"
	"blockhouse/internal/config"
	"blockhouse/internal/ingest"
	"blockhouse/internal/predict"
	"blockhouse/internal/provider"
	"blockhouse/internal/report"
	"blockhouse/internal/store"
)

// Server serves the blockhouse HTTP API.
type Server struct {
	pipeline  *ingest.Pipeline
	bars      store.BarStore
	preds     store.PredictionStore
	predictor *predict.Predictor
	assembler *report.Assembler
	defaults  config.BacktestConfig
	timeout   time.Duration // wall-clock budget per ingestion call
	log       *slog.Logger
}

// NewServer creates a Server wiring the pipeline, stores, predictor, and
// assembler together.
func NewServer(
	pipeline *ingest.Pipeline,
	bars store.BarStore,
	preds store.PredictionStore,
	predictor *predict.Predictor,
	assembler *report.Assembler,
	defaults config.BacktestConfig,
	timeout time.Duration,
	log *slog.Logger,
) *Server {
	return &Server{
		pipeline:  pipeline,
		bars:      bars,
		preds:     preds,
		predictor: predictor,
		assembler: assembler,
		defaults:  defaults,
		timeout:   timeout,
		log:       log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/fetch/{symbol}", s.handleFetch)
	mux.HandleFunc("GET /api/backtest/{symbol}", s.handleBacktest)
	mux.HandleFunc("GET /api/predict/{symbol}", s.handlePredict)
	mux.HandleFunc("GET /api/report/{symbol}", s.handleReport)
	mux.HandleFunc("GET /api/health", s.handleHealth)
}

// Handler returns the fully routed http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	count, err := s.pipeline.Ingest(ctx, symbol)
	if err != nil {
		s.log.Error("ingest failed", "symbol", symbol, "err", err)
		writeError(w, ingestStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, fetchResponse{Symbol: symbol, Bars: count})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	initial := decimal.NewFromFloat(s.defaults.InitialInvestment)
	if v := r.URL.Query().Get("initial_investment"); v != "" {
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid initial_investment")
			return
		}
		initial = parsed
	}

	buyWindow, ok := intParam(w, r, "buy_window", s.defaults.BuyWindow)
	if !ok {
		return
	}
	sellWindow, ok := intParam(w, r, "sell_window", s.defaults.SellWindow)
	if !ok {
		return
	}

	series, err := s.bars.ReadBars(r.Context(), symbol)
	if err != nil {
		s.log.Error("reading bars failed", "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "reading stored bars failed")
		return
	}
	if len(series) == 0 {
		writeError(w, http.StatusNotFound, "no stock data available for this symbol")
		return
	}

	result, err := backtest.Run(series, initial, buyWindow, sellWindow)
	if err != nil {
		var invalid *backtest.InvalidParameterError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	series, err := s.bars.ReadBars(r.Context(), symbol)
	if err != nil {
		s.log.Error("reading bars failed", "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "reading stored bars failed")
		return
	}
	if len(series) == 0 {
		writeError(w, http.StatusNotFound, "no stock data available for this symbol")
		return
	}

	predictions, err := s.predictor.Predict(series)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.preds.UpsertPredictions(r.Context(), predictions); err != nil {
		s.log.Error("storing predictions failed", "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "storing predictions failed")
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Symbol:      symbol,
		Predictions: toPredictionPoints(predictions),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	series, err := s.bars.ReadBars(r.Context(), symbol)
	if err != nil {
		s.log.Error("reading bars failed", "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "reading stored bars failed")
		return
	}
	if len(series) == 0 {
		writeError(w, http.StatusNotFound, "no stock data available for this symbol")
		return
	}

	initial := decimal.NewFromFloat(s.defaults.InitialInvestment)
	metrics, err := backtest.Run(series, initial, s.defaults.BuyWindow, s.defaults.SellWindow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload, err := s.assembler.Build(r.Context(), symbol, metrics)
	if err != nil {
		s.log.Error("assembling report failed", "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "assembling report failed")
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// ingestStatus maps a pipeline error onto an HTTP status: hard provider
// failures pass their upstream status through, exhausted retries become 502,
// cancellation 504.
func ingestStatus(err error) int {
	var hard *provider.HardError
	switch {
	case errors.As(err, &hard):
		return hard.Status
	case errors.Is(err, ingest.ErrExhaustedRetries):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
