package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"blockhouse/internal/domain"
)

// ParquetArchive exports stored bars to Parquet files for offline analysis.
// It is an archive, not the system of record: SQLite keeps the exact decimal
// values, the archive holds float64 approximations for analytical tooling.
type ParquetArchive struct {
	DataDir string
}

// NewParquetArchive creates a ParquetArchive rooted at the given directory.
func NewParquetArchive(dataDir string) *ParquetArchive {
	return &ParquetArchive{DataDir: dataDir}
}

// BarRecord is the Parquet schema for archived daily bars.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// ExportBars writes the series to the symbol's archive file, merging with any
// previously archived records. Records are deduplicated by date with new
// values winning.
func (a *ParquetArchive) ExportBars(symbol string, series domain.Series) error {
	if len(series) == 0 {
		return nil
	}

	incoming := make([]BarRecord, 0, len(series))
	for _, b := range series {
		incoming = append(incoming, BarRecord{
			Symbol:    b.Symbol,
			Timestamp: b.Date.UnixMilli(),
			Open:      b.Open.InexactFloat64(),
			High:      b.High.InexactFloat64(),
			Low:       b.Low.InexactFloat64(),
			Close:     b.Close.InexactFloat64(),
			Volume:    int64(b.Volume),
		})
	}

	path := a.barPath(symbol)
	existing, _ := readParquetFile[BarRecord](path)
	merged := mergeBarRecords(existing, incoming)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing archive for %s: %w", symbol, err)
	}
	return nil
}

// ReadArchivedBars reads a symbol's archived bars, ascending by date.
func (a *ParquetArchive) ReadArchivedBars(symbol string) (domain.Series, error) {
	records, err := readParquetFile[BarRecord](a.barPath(symbol))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	series := make(domain.Series, 0, len(records))
	for _, r := range records {
		ts := time.UnixMilli(r.Timestamp).UTC()
		series = append(series, domain.Bar{
			Symbol: r.Symbol,
			Date:   ts,
			Open:   decimal.NewFromFloat(r.Open),
			High:   decimal.NewFromFloat(r.High),
			Low:    decimal.NewFromFloat(r.Low),
			Close:  decimal.NewFromFloat(r.Close),
			Volume: uint64(r.Volume),
		})
	}
	return series, nil
}

// barPath returns the archive path for a symbol.
// Layout: <dataDir>/daily/<SYMBOL>.parquet
func (a *ParquetArchive) barPath(symbol string) string {
	return filepath.Join(a.DataDir, "daily", strings.ToUpper(symbol)+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeBarRecords deduplicates records by (symbol, timestamp), preferring new
// records over existing ones. Results are sorted by timestamp.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
