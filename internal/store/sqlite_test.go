package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"blockhouse/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func bar(symbol, date, closePx string, volume uint64) domain.Bar {
	d, _ := domain.Date(date)
	px := decimal.RequireFromString(closePx)
	return domain.Bar{
		Symbol: symbol,
		Date:   d,
		Open:   px, High: px, Low: px, Close: px,
		Volume: volume,
	}
}

func TestUpsertAndReadOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Insert out of order; reads must come back ascending by date.
	bars := []domain.Bar{
		bar("AAPL", "2024-01-03", "184.25", 58414460),
		bar("AAPL", "2024-01-02", "185.64", 82488700),
		bar("AAPL", "2024-01-05", "181.18", 62303300),
	}
	if err := s.UpsertBars(ctx, bars); err != nil {
		t.Fatalf("UpsertBars: %v", err)
	}

	got, err := s.ReadBars(ctx, "AAPL")
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadBars returned %d bars, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Date.Before(got[i].Date) {
			t.Errorf("bars not ascending: %s before %s", got[i-1].Date, got[i].Date)
		}
	}
	if want := decimal.RequireFromString("185.64"); !got[0].Close.Equal(want) {
		t.Errorf("first close = %s, want %s", got[0].Close, want)
	}
	if got[0].Volume != 82488700 {
		t.Errorf("first volume = %d, want 82488700", got[0].Volume)
	}
}

func TestUpsertOverwritesExistingDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertBars(ctx, []domain.Bar{bar("AAPL", "2024-01-02", "185.64", 100)}); err != nil {
		t.Fatalf("UpsertBars (first): %v", err)
	}
	// Same (symbol, date) with different values: full overwrite, no new row.
	if err := s.UpsertBars(ctx, []domain.Bar{bar("AAPL", "2024-01-02", "190.00", 200)}); err != nil {
		t.Fatalf("UpsertBars (second): %v", err)
	}

	got, err := s.ReadBars(ctx, "AAPL")
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadBars returned %d bars, want 1 (no duplicate rows)", len(got))
	}
	if want := decimal.RequireFromString("190.00"); !got[0].Close.Equal(want) {
		t.Errorf("close = %s, want %s (last write wins)", got[0].Close, want)
	}
	if got[0].Volume != 200 {
		t.Errorf("volume = %d, want 200", got[0].Volume)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bars := []domain.Bar{
		bar("AAPL", "2024-01-02", "185.64", 82488700),
		bar("AAPL", "2024-01-03", "184.25", 58414460),
	}

	if err := s.UpsertBars(ctx, bars); err != nil {
		t.Fatalf("UpsertBars (first): %v", err)
	}
	first, err := s.ReadBars(ctx, "AAPL")
	if err != nil {
		t.Fatalf("ReadBars (first): %v", err)
	}

	if err := s.UpsertBars(ctx, bars); err != nil {
		t.Fatalf("UpsertBars (second): %v", err)
	}
	second, err := s.ReadBars(ctx, "AAPL")
	if err != nil {
		t.Fatalf("ReadBars (second): %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("row count changed after re-ingest: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Date.Equal(second[i].Date) ||
			!first[i].Open.Equal(second[i].Open) ||
			!first[i].High.Equal(second[i].High) ||
			!first[i].Low.Equal(second[i].Low) ||
			!first[i].Close.Equal(second[i].Close) ||
			first[i].Volume != second[i].Volume {
			t.Errorf("bar %d changed after re-ingest: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestReadBarsUnknownSymbol(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ReadBars(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadBars returned %d bars for unknown symbol, want 0", len(got))
	}
}

func TestListSymbols(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpsertBars(ctx, []domain.Bar{
		bar("MSFT", "2024-01-02", "400.00", 100),
		bar("AAPL", "2024-01-02", "185.64", 100),
		bar("AAPL", "2024-01-03", "184.25", 100),
	})
	if err != nil {
		t.Fatalf("UpsertBars: %v", err)
	}

	symbols, err := s.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
		t.Errorf("ListSymbols = %v, want [AAPL MSFT]", symbols)
	}
}

func TestPredictionsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	preds := []domain.Prediction{
		{Symbol: "AAPL", Date: base.AddDate(0, 0, 1), Price: decimal.RequireFromString("190.25")},
		{Symbol: "AAPL", Date: base, Price: decimal.RequireFromString("189.75")},
	}
	if err := s.UpsertPredictions(ctx, preds); err != nil {
		t.Fatalf("UpsertPredictions: %v", err)
	}

	// Overwrite one prediction.
	updated := []domain.Prediction{
		{Symbol: "AAPL", Date: base, Price: decimal.RequireFromString("191.00")},
	}
	if err := s.UpsertPredictions(ctx, updated); err != nil {
		t.Fatalf("UpsertPredictions (overwrite): %v", err)
	}

	got, err := s.ReadPredictions(ctx, "AAPL")
	if err != nil {
		t.Fatalf("ReadPredictions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadPredictions returned %d, want 2", len(got))
	}
	if !got[0].Date.Equal(base) {
		t.Errorf("first prediction date = %s, want %s", got[0].Date, base)
	}
	if want := decimal.RequireFromString("191.00"); !got[0].Price.Equal(want) {
		t.Errorf("first prediction price = %s, want %s", got[0].Price, want)
	}
}
