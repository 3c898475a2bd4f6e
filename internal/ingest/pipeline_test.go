package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"blockhouse/internal/domain"
	"blockhouse/internal/provider"
)

// scriptedSource returns one pre-planned outcome per call.
type scriptedSource struct {
	outcomes []outcome
	calls    int
}

type outcome struct {
	bars []domain.Bar
	err  error
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) DailySeries(_ context.Context, _ string) ([]domain.Bar, error) {
	if s.calls >= len(s.outcomes) {
		return nil, errors.New("scriptedSource: no outcome planned for this call")
	}
	o := s.outcomes[s.calls]
	s.calls++
	return o.bars, o.err
}

// recordingStore captures every upserted batch.
type recordingStore struct {
	batches [][]domain.Bar
}

func (r *recordingStore) UpsertBars(_ context.Context, bars []domain.Bar) error {
	r.batches = append(r.batches, bars)
	return nil
}

func (r *recordingStore) ReadBars(_ context.Context, _ string) (domain.Series, error) {
	return nil, nil
}

func (r *recordingStore) ListSymbols(_ context.Context) ([]string, error) {
	return nil, nil
}

// sleepRecorder captures backoff waits without actually sleeping.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func testBars(n int) []domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, 0, n)
	for i := 0; i < n; i++ {
		px := decimal.NewFromInt(int64(100 + i))
		bars = append(bars, domain.Bar{
			Symbol: "AAPL",
			Date:   start.AddDate(0, 0, i),
			Open:   px, High: px, Low: px, Close: px,
			Volume: 1000,
		})
	}
	return bars
}

func TestIngestRetriesRateLimitThenSucceeds(t *testing.T) {
	source := &scriptedSource{outcomes: []outcome{
		{err: provider.ErrRateLimited},
		{err: provider.ErrRateLimited},
		{bars: testBars(3)},
	}}
	st := &recordingStore{}
	sleeps := &sleepRecorder{}

	p := NewPipeline(source, st, WithSleep(sleeps.sleep))

	count, err := p.Ingest(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if count != 3 {
		t.Errorf("Ingest upserted %d bars, want 3", count)
	}
	if source.calls != 3 {
		t.Errorf("source called %d times, want 3", source.calls)
	}
	if len(st.batches) != 1 {
		t.Fatalf("store received %d batches, want 1 atomic batch", len(st.batches))
	}

	// Two rate-limited attempts cost one 60s wait each.
	if len(sleeps.waits) != 2 {
		t.Fatalf("pipeline slept %d times, want 2", len(sleeps.waits))
	}
	var total time.Duration
	for _, d := range sleeps.waits {
		total += d
	}
	if want := 120 * time.Second; total != want {
		t.Errorf("total backoff = %s, want %s", total, want)
	}
}

func TestIngestHardFailureAbortsImmediately(t *testing.T) {
	source := &scriptedSource{outcomes: []outcome{
		{err: &provider.HardError{Status: 404, Body: []byte("not found")}},
	}}
	st := &recordingStore{}
	sleeps := &sleepRecorder{}

	p := NewPipeline(source, st, WithSleep(sleeps.sleep))

	_, err := p.Ingest(context.Background(), "NOPE")
	var hard *provider.HardError
	if !errors.As(err, &hard) {
		t.Fatalf("Ingest error = %v, want *provider.HardError", err)
	}
	if hard.Status != 404 {
		t.Errorf("HardError.Status = %d, want 404", hard.Status)
	}
	if source.calls != 1 {
		t.Errorf("source called %d times, want 1 (no retries)", source.calls)
	}
	if len(sleeps.waits) != 0 {
		t.Errorf("pipeline slept %d times, want 0", len(sleeps.waits))
	}
	if len(st.batches) != 0 {
		t.Errorf("store received %d batches, want 0", len(st.batches))
	}
}

func TestIngestExhaustsSharedBudget(t *testing.T) {
	var outcomes []outcome
	for i := 0; i < 5; i++ {
		outcomes = append(outcomes, outcome{err: provider.ErrTransient})
	}
	source := &scriptedSource{outcomes: outcomes}
	st := &recordingStore{}
	sleeps := &sleepRecorder{}

	p := NewPipeline(source, st, WithSleep(sleeps.sleep))

	_, err := p.Ingest(context.Background(), "AAPL")
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("Ingest error = %v, want ErrExhaustedRetries", err)
	}
	if source.calls != 5 {
		t.Errorf("source called %d times, want 5", source.calls)
	}
	if len(st.batches) != 0 {
		t.Errorf("store received %d batches, want 0", len(st.batches))
	}
	// Transient waits are 10s each; no wait after the final attempt.
	for i, d := range sleeps.waits {
		if d != 10*time.Second {
			t.Errorf("wait %d = %s, want 10s", i, d)
		}
	}
}

func TestIngestMixedFailuresShareOneBudget(t *testing.T) {
	source := &scriptedSource{outcomes: []outcome{
		{err: provider.ErrRateLimited},
		{err: provider.ErrTransient},
		{err: provider.ErrRateLimited},
		{err: provider.ErrTransient},
		{err: provider.ErrTransient},
	}}
	st := &recordingStore{}
	sleeps := &sleepRecorder{}

	p := NewPipeline(source, st, WithSleep(sleeps.sleep))

	_, err := p.Ingest(context.Background(), "AAPL")
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("Ingest error = %v, want ErrExhaustedRetries", err)
	}
	if source.calls != 5 {
		t.Errorf("source called %d times, want 5 (one shared budget)", source.calls)
	}
}

func TestIngestEmptySeriesIsNotAnError(t *testing.T) {
	source := &scriptedSource{outcomes: []outcome{{bars: nil}}}
	st := &recordingStore{}

	p := NewPipeline(source, st, WithSleep((&sleepRecorder{}).sleep))

	count, err := p.Ingest(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if count != 0 {
		t.Errorf("Ingest upserted %d bars, want 0", count)
	}
	if len(st.batches) != 0 {
		t.Errorf("store received %d batches, want 0", len(st.batches))
	}
}

func TestIngestCancelledMidBackoff(t *testing.T) {
	source := &scriptedSource{outcomes: []outcome{
		{err: provider.ErrRateLimited},
		{err: provider.ErrRateLimited},
		{err: provider.ErrRateLimited},
		{err: provider.ErrRateLimited},
		{err: provider.ErrRateLimited},
	}}
	st := &recordingStore{}

	ctx, cancel := context.WithCancel(context.Background())
	cancelSleep := func(c context.Context, _ time.Duration) error {
		cancel()
		return c.Err()
	}

	p := NewPipeline(source, st, WithSleep(cancelSleep))

	_, err := p.Ingest(ctx, "AAPL")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Ingest error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrExhaustedRetries) {
		t.Error("cancellation must not surface as ErrExhaustedRetries")
	}
}

func TestIngestCustomAttemptBudget(t *testing.T) {
	source := &scriptedSource{outcomes: []outcome{
		{err: provider.ErrTransient},
		{err: provider.ErrTransient},
	}}
	st := &recordingStore{}

	p := NewPipeline(source, st,
		WithMaxAttempts(2),
		WithBackoff(time.Minute, time.Second),
		WithSleep((&sleepRecorder{}).sleep),
	)

	_, err := p.Ingest(context.Background(), "AAPL")
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("Ingest error = %v, want ErrExhaustedRetries", err)
	}
	if source.calls != 2 {
		t.Errorf("source called %d times, want 2", source.calls)
	}
}
