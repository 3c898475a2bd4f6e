// Package domain defines the core types shared across the blockhouse
// platform: daily OHLCV bars, ordered price series, and price predictions.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical wire and storage format for bar dates.
const DateLayout = "2006-01-02"

// Bar represents one day's OHLCV record for a symbol. Bars are unique per
// (symbol, date); the date carries no time-of-day component and is always UTC.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume uint64
}

// Series is an ordered sequence of bars for one symbol, ascending by date.
// Gaps from non-trading days are expected and left as-is. A Series is never
// mutated in place; consumers derive new sequences (moving averages)
// alongside it.
type Series []Bar

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s) }

// Closes returns the closing prices of the series, index-aligned with it.
func (s Series) Closes() []decimal.Decimal {
	closes := make([]decimal.Decimal, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Prediction is a model-predicted closing price for a future calendar date.
type Prediction struct {
	Symbol string
	Date   time.Time
	Price  decimal.Decimal
}

// Date parses a YYYY-MM-DD string into a UTC date.
func Date(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
