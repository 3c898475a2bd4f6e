// Package alpaca provides a provider.Source backed by the Alpaca market-data
// API, as an alternative to the default Alpha Vantage source.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"blockhouse/internal/domain"
	"blockhouse/internal/provider"
)

// Compile-time interface check.
var _ provider.Source = (*Source)(nil)

// Source fetches daily bars for a symbol from Alpaca. Alpaca serves split
// history rather than full history in one shot, so the fetch is bounded to a
// fixed lookback from today.
type Source struct {
	client   *marketdata.Client
	lookback time.Duration
}

// NewSource creates a Source with the given Alpaca credentials. An empty
// dataURL uses the SDK default endpoint.
func NewSource(apiKey, apiSecret, dataURL string) *Source {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &Source{
		client:   marketdata.NewClient(opts),
		lookback: 20 * 365 * 24 * time.Hour,
	}
}

// Name returns the source identifier.
func (s *Source) Name() string { return "alpaca" }

// DailySeries fetches daily bars for symbol and maps SDK failures onto the
// provider error taxonomy: HTTP 429 becomes ErrRateLimited, other API errors
// become *HardError, and anything network-level becomes ErrTransient.
func (s *Source) DailySeries(ctx context.Context, symbol string) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	start := end.Add(-s.lookback)

	alpacaBars, err := s.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		d := ab.Timestamp.UTC()
		bars = append(bars, domain.Bar{
			Symbol: symbol,
			Date:   time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Open:   decimal.NewFromFloat(ab.Open),
			High:   decimal.NewFromFloat(ab.High),
			Low:    decimal.NewFromFloat(ab.Low),
			Close:  decimal.NewFromFloat(ab.Close),
			Volume: ab.Volume,
		})
	}
	return bars, nil
}

func classify(err error) error {
	var apiErr *alpacaapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return provider.ErrRateLimited
		}
		return &provider.HardError{
			Status: apiErr.StatusCode,
			Body:   []byte(apiErr.Message),
		}
	}
	return fmt.Errorf("%w: %v", provider.ErrTransient, err)
}
