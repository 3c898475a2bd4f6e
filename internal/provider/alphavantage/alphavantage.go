// Package alphavantage fetches daily price series from the Alpha Vantage
// TIME_SERIES_DAILY endpoint.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"blockhouse/internal/domain"
	"blockhouse/internal/provider"
	"blockhouse/internal/util"
)

// seriesKey is the payload key holding the date-to-bar map.
const seriesKey = "Time Series (Daily)"

// ---------------------------------------------------------------------------
// Client — transport only, one HTTP request per call.
// ---------------------------------------------------------------------------

// Client performs raw TIME_SERIES_DAILY requests. It carries no retry logic;
// each FetchDailySeries call is exactly one HTTP request.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *util.RateLimiter // nil disables client-side rate limiting
}

// NewClient creates a Client for the given endpoint and API key. The key is
// injected here and nowhere else; it never appears in source or logs. If
// ratePerMin > 0 a token-bucket limiter throttles outgoing requests.
func NewClient(apiKey, baseURL string, ratePerMin int) *Client {
	var limiter *util.RateLimiter
	if ratePerMin > 0 {
		limiter = util.NewRateLimiter(ratePerMin)
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
	}
}

// FetchDailySeries performs one request for the symbol's full daily history
// and returns the HTTP status and raw body. A non-nil error means the request
// never produced a response (network-level failure).
func (c *Client) FetchDailySeries(ctx context.Context, symbol string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)
	q.Set("outputsize", "full")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// ---------------------------------------------------------------------------
// Source — classification and payload parsing on top of Client.
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ provider.Source = (*Source)(nil)

// Source adapts Client to the provider.Source contract: it classifies each
// fetch outcome into the shared error taxonomy and parses successful payloads
// into bars.
type Source struct {
	client *Client
}

// NewSource creates a Source backed by the given Client.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// Name returns the source identifier.
func (s *Source) Name() string { return "alphavantage" }

// DailySeries fetches and parses the daily series for symbol. Status 200 is
// success, 429 maps to provider.ErrRateLimited, a network-level failure maps
// to provider.ErrTransient (unless the context was cancelled), and any other
// status is a *provider.HardError.
func (s *Source) DailySeries(ctx context.Context, symbol string) ([]domain.Bar, error) {
	status, body, err := s.client.FetchDailySeries(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", provider.ErrTransient, err)
	}

	switch {
	case status == http.StatusOK:
		return ParseDailySeries(symbol, body)
	case status == http.StatusTooManyRequests:
		return nil, provider.ErrRateLimited
	default:
		return nil, &provider.HardError{Status: status, Body: body}
	}
}

// dailyBar mirrors the string-valued fields of one entry in the
// "Time Series (Daily)" payload map.
type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// ParseDailySeries decodes a TIME_SERIES_DAILY payload into bars sorted
// ascending by date. A payload without the daily-series key is an empty
// series, not an error.
func ParseDailySeries(symbol string, body []byte) ([]domain.Bar, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	raw, ok := envelope[seriesKey]
	if !ok {
		return nil, nil
	}

	var days map[string]dailyBar
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("decoding daily series: %w", err)
	}

	bars := make([]domain.Bar, 0, len(days))
	for dateStr, d := range days {
		bar, err := toBar(symbol, dateStr, d)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	return bars, nil
}

func toBar(symbol, dateStr string, d dailyBar) (domain.Bar, error) {
	date, err := domain.Date(dateStr)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing date %q: %w", dateStr, err)
	}

	open, err := decimal.NewFromString(d.Open)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing open for %s: %w", dateStr, err)
	}
	high, err := decimal.NewFromString(d.High)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing high for %s: %w", dateStr, err)
	}
	low, err := decimal.NewFromString(d.Low)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing low for %s: %w", dateStr, err)
	}
	closePx, err := decimal.NewFromString(d.Close)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing close for %s: %w", dateStr, err)
	}

	volume, err := strconv.ParseUint(d.Volume, 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing volume for %s: %w", dateStr, err)
	}

	return domain.Bar{
		Symbol: symbol,
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: volume,
	}, nil
}
