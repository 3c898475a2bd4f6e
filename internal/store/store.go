// Package store defines storage interfaces for persisting and retrieving
// daily bars and price predictions, with SQLite as the primary backend and
// Parquet as an archival export format.
package store

import (
	"context"

	"blockhouse/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// UpsertBars writes a batch of bars atomically. A bar whose (symbol,
	// date) already exists is fully overwritten, field by field. Re-writing
	// an unchanged batch leaves storage identical.
	UpsertBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns all bars for the symbol, ascending by date.
	ReadBars(ctx context.Context, symbol string) (domain.Series, error)

	// ListSymbols returns all distinct symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// PredictionStore persists and retrieves predicted prices.
type PredictionStore interface {
	// UpsertPredictions writes a batch of predictions atomically, overwriting
	// any existing prediction for the same (symbol, date).
	UpsertPredictions(ctx context.Context, preds []domain.Prediction) error

	// ReadPredictions returns all predictions for the symbol, ascending by
	// date.
	ReadPredictions(ctx context.Context, symbol string) ([]domain.Prediction, error)
}
