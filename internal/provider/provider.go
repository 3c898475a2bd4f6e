// Package provider defines the market-data source abstraction and the error
// taxonomy the ingestion pipeline uses to decide whether a failed fetch is
// worth retrying.
package provider

import (
	"context"
	"errors"
	"fmt"

	"blockhouse/internal/domain"
)

// Source fetches the full daily price series for a symbol. Implementations
// perform exactly one upstream request per call; retry policy belongs to the
// caller.
type Source interface {
	// Name returns the source identifier (e.g. "alphavantage", "alpaca").
	Name() string

	// DailySeries returns all available daily bars for the symbol. Failures
	// are classified through the package error taxonomy: ErrRateLimited and
	// ErrTransient are recoverable, a *HardError is not.
	DailySeries(ctx context.Context, symbol string) ([]domain.Bar, error)
}

// ErrRateLimited indicates the provider rejected the request because the
// request quota is exhausted. Recoverable after the quota resets.
var ErrRateLimited = errors.New("provider: rate limited")

// ErrTransient indicates a network-level failure (connection refused,
// timeout, DNS). Recoverable after a short wait.
var ErrTransient = errors.New("provider: transient network error")

// HardError is a non-recoverable provider-side failure, such as an invalid
// symbol or a server error unrelated to rate limiting. It is never retried.
type HardError struct {
	Status int
	Body   []byte
}

// Error implements the error interface.
func (e *HardError) Error() string {
	return fmt.Sprintf("provider: hard failure (status %d)", e.Status)
}
