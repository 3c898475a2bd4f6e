// Package report assembles stored prices, stored predictions, and backtest
// metrics into a single presentation payload.
package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"blockhouse/internal/backtest"
	"blockhouse/internal/domain"
	"blockhouse/internal/store"
)

// PricePoint is one dated price in the payload.
type PricePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// Payload is the combined report for one symbol.
type Payload struct {
	Symbol          string          `json:"symbol"`
	ActualPrices    []PricePoint    `json:"actual_prices"`
	PredictedPrices []PricePoint    `json:"predicted_prices"`
	Metrics         backtest.Report `json:"metrics"`
}

// Assembler builds report payloads from the bar and prediction stores.
type Assembler struct {
	bars  store.BarStore
	preds store.PredictionStore
}

// NewAssembler creates an Assembler backed by the given stores.
func NewAssembler(bars store.BarStore, preds store.PredictionStore) *Assembler {
	return &Assembler{bars: bars, preds: preds}
}

// Build reads the symbol's stored closes and predictions and combines them
// with the supplied backtest metrics.
func (a *Assembler) Build(ctx context.Context, symbol string, metrics backtest.Report) (*Payload, error) {
	series, err := a.bars.ReadBars(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}

	predictions, err := a.preds.ReadPredictions(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("reading predictions for %s: %w", symbol, err)
	}

	payload := &Payload{
		Symbol:          symbol,
		ActualPrices:    make([]PricePoint, 0, len(series)),
		PredictedPrices: make([]PricePoint, 0, len(predictions)),
		Metrics:         metrics,
	}
	for _, b := range series {
		payload.ActualPrices = append(payload.ActualPrices, PricePoint{
			Date:  b.Date.Format(domain.DateLayout),
			Price: b.Close,
		})
	}
	for _, p := range predictions {
		payload.PredictedPrices = append(payload.PredictedPrices, PricePoint{
			Date:  p.Date.Format(domain.DateLayout),
			Price: p.Price,
		})
	}
	return payload, nil
}
