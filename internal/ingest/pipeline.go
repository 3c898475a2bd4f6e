// Package ingest implements the resilient ingestion pipeline: it fetches a
// symbol's daily series through a provider.Source, retrying recoverable
// failures against a single shared attempt budget, and upserts the parsed
// bars into storage in one atomic batch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blockhouse/internal/provider"
	"blockhouse/internal/store"
	"blockhouse/internal/util"
)

// ErrExhaustedRetries is returned when the shared attempt budget runs out
// without a successful fetch.
var ErrExhaustedRetries = errors.New("ingest: retry budget exhausted")

// Pipeline orchestrates fetch, retry, and storage for one symbol at a time.
type Pipeline struct {
	source provider.Source
	bars   store.BarStore
	log    *slog.Logger

	maxAttempts   int
	rateLimitWait time.Duration // wait after a rate-limited attempt
	transientWait time.Duration // wait after a network-level failure

	// sleep is swappable so tests can observe backoff without real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBackoff overrides the rate-limit and transient wait intervals.
func WithBackoff(rateLimitWait, transientWait time.Duration) Option {
	return func(p *Pipeline) {
		p.rateLimitWait = rateLimitWait
		p.transientWait = transientWait
	}
}

// WithMaxAttempts overrides the shared attempt budget.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) { p.maxAttempts = n }
}

// WithSleep replaces the backoff sleep function. Used by tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// NewPipeline creates a Pipeline that fetches from source and writes to bars.
// Defaults: 5 attempts total, 60s wait after rate limiting, 10s wait after a
// transient network failure.
func NewPipeline(source provider.Source, bars store.BarStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:        source,
		bars:          bars,
		log:           slog.Default().With("component", "ingest"),
		maxAttempts:   5,
		rateLimitWait: 60 * time.Second,
		transientWait: 10 * time.Second,
		sleep:         util.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest fetches the daily series for symbol and upserts it, returning the
// number of bars written.
//
// Rate-limited and transient failures are retried against one shared budget;
// a hard provider failure aborts immediately without consuming it. Nothing is
// written unless a fetch succeeds, and the upsert itself is a single atomic
// batch, so a failed invocation never leaves partial state. Cancelling ctx
// mid-wait surfaces the context error, not ErrExhaustedRetries.
func (p *Pipeline) Ingest(ctx context.Context, symbol string) (int, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		bars, err := p.source.DailySeries(ctx, symbol)
		switch {
		case err == nil:
			if len(bars) == 0 {
				p.log.Info("empty series", "symbol", symbol, "source", p.source.Name())
				return 0, nil
			}
			if err := p.bars.UpsertBars(ctx, bars); err != nil {
				return 0, fmt.Errorf("upserting %d bars for %s: %w", len(bars), symbol, err)
			}
			p.log.Info("ingested", "symbol", symbol, "bars", len(bars), "attempts", attempt)
			return len(bars), nil

		case errors.Is(err, provider.ErrRateLimited):
			p.log.Warn("rate limited", "symbol", symbol, "attempt", attempt, "wait", p.rateLimitWait)
			if attempt < p.maxAttempts {
				if serr := p.sleep(ctx, p.rateLimitWait); serr != nil {
					return 0, serr
				}
			}

		case errors.Is(err, provider.ErrTransient):
			p.log.Warn("transient failure", "symbol", symbol, "attempt", attempt, "err", err)
			if attempt < p.maxAttempts {
				if serr := p.sleep(ctx, p.transientWait); serr != nil {
					return 0, serr
				}
			}

		default:
			// Hard failure or cancellation: surface immediately, no retry.
			return 0, err
		}

		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}

	return 0, ErrExhaustedRetries
}
