// Package backtest implements the moving-average crossover simulation engine.
// It is a pure function of its inputs: no I/O, no shared state, safe to run
// concurrently for independent series.
package backtest

import "github.com/shopspring/decimal"

// MovingAverage computes the trailing arithmetic mean of closes over the
// given window. The result is index-aligned with closes; element i is only
// defined once i+1 >= window (i.e. the window has filled), inclusive of
// element i. Undefined elements are zero and must be guarded by callers via
// Defined.
func MovingAverage(closes []decimal.Decimal, window int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(closes))
	if window <= 0 || len(closes) < window {
		return out
	}

	div := decimal.NewFromInt(int64(window))
	var sum decimal.Decimal
	for i, c := range closes {
		sum = sum.Add(c)
		if i >= window {
			sum = sum.Sub(closes[i-window])
		}
		if i+1 >= window {
			out[i] = sum.Div(div)
		}
	}
	return out
}

// Defined reports whether the moving average over window is available at
// index i.
func Defined(i, window int) bool {
	return window > 0 && i+1 >= window
}
