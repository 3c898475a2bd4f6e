package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"blockhouse/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ BarStore = (*SQLiteStore)(nil)
var _ PredictionStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	open   TEXT NOT NULL,
	high   TEXT NOT NULL,
	low    TEXT NOT NULL,
	close  TEXT NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (symbol, date)
);

CREATE TABLE IF NOT EXISTS predictions (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	price  TEXT NOT NULL,
	PRIMARY KEY (symbol, date)
);
`

// SQLiteStore implements BarStore and PredictionStore backed by a SQLite
// database. Prices are stored as decimal strings so they round-trip exactly.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore. The connection pool is
// capped at one connection; SQLite is single-writer and this serializes
// concurrent upserts for the same key.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// UpsertBars writes all bars inside a single transaction. Either every bar
// lands or none do.
func (s *SQLiteStore) UpsertBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx,
			b.Symbol,
			b.Date.Format(domain.DateLayout),
			b.Open.String(),
			b.High.String(),
			b.Low.String(),
			b.Close.String(),
			int64(b.Volume),
		)
		if err != nil {
			return fmt.Errorf("upserting bar %s/%s: %w", b.Symbol, b.Date.Format(domain.DateLayout), err)
		}
	}

	return tx.Commit()
}

// ReadBars returns all bars for the symbol, ascending by date.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string) (domain.Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume
		FROM bars WHERE symbol = ? ORDER BY date ASC`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series domain.Series
	for rows.Next() {
		var (
			sym, dateStr              string
			open, high, low, closeStr string
			volume                    int64
		)
		if err := rows.Scan(&sym, &dateStr, &open, &high, &low, &closeStr, &volume); err != nil {
			return nil, err
		}

		bar, err := barFromRow(sym, dateStr, open, high, low, closeStr, volume)
		if err != nil {
			return nil, err
		}
		series = append(series, bar)
	}
	return series, rows.Err()
}

// ListSymbols returns all distinct symbols with stored bars.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func barFromRow(symbol, dateStr, open, high, low, closePx string, volume int64) (domain.Bar, error) {
	date, err := domain.Date(dateStr)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing stored date %q: %w", dateStr, err)
	}

	o, err := decimal.NewFromString(open)
	if err != nil {
		return domain.Bar{}, err
	}
	h, err := decimal.NewFromString(high)
	if err != nil {
		return domain.Bar{}, err
	}
	l, err := decimal.NewFromString(low)
	if err != nil {
		return domain.Bar{}, err
	}
	c, err := decimal.NewFromString(closePx)
	if err != nil {
		return domain.Bar{}, err
	}

	return domain.Bar{
		Symbol: symbol,
		Date:   date,
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: uint64(volume),
	}, nil
}

// ---------------------------------------------------------------------------
// PredictionStore implementation
// ---------------------------------------------------------------------------

// UpsertPredictions writes all predictions inside a single transaction.
func (s *SQLiteStore) UpsertPredictions(ctx context.Context, preds []domain.Prediction) error {
	if len(preds) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO predictions (symbol, date, price)
		VALUES (?, ?, ?)
		ON CONFLICT (symbol, date) DO UPDATE SET price = excluded.price`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range preds {
		_, err := stmt.ExecContext(ctx, p.Symbol, p.Date.Format(domain.DateLayout), p.Price.String())
		if err != nil {
			return fmt.Errorf("upserting prediction %s/%s: %w", p.Symbol, p.Date.Format(domain.DateLayout), err)
		}
	}

	return tx.Commit()
}

// ReadPredictions returns all predictions for the symbol, ascending by date.
func (s *SQLiteStore) ReadPredictions(ctx context.Context, symbol string) ([]domain.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, date, price FROM predictions
		WHERE symbol = ? ORDER BY date ASC`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		var sym, dateStr, priceStr string
		if err := rows.Scan(&sym, &dateStr, &priceStr); err != nil {
			return nil, err
		}

		date, err := domain.Date(dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing stored date %q: %w", dateStr, err)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, err
		}
		preds = append(preds, domain.Prediction{Symbol: sym, Date: date, Price: price})
	}
	return preds, rows.Err()
}
