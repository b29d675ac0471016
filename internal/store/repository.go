// Package store persists synced query results in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/krxquery/internal/delisting"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/resample"
)

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS krxquery;

CREATE TABLE IF NOT EXISTS krxquery.daily_ohlcv (
	ticker      TEXT        NOT NULL,
	trade_date  DATE        NOT NULL,
	adjusted    BOOLEAN     NOT NULL,
	open_price  DOUBLE PRECISION NOT NULL,
	high_price  DOUBLE PRECISION NOT NULL,
	low_price   DOUBLE PRECISION NOT NULL,
	close_price DOUBLE PRECISION NOT NULL,
	volume      DOUBLE PRECISION NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (ticker, trade_date, adjusted)
);

CREATE TABLE IF NOT EXISTS krxquery.price_changes (
	from_date   DATE        NOT NULL,
	to_date     DATE        NOT NULL,
	ticker      TEXT        NOT NULL,
	name        TEXT        NOT NULL,
	open_price  DOUBLE PRECISION NOT NULL,
	close_price DOUBLE PRECISION NOT NULL,
	change      DOUBLE PRECISION NOT NULL,
	change_rate DOUBLE PRECISION NOT NULL,
	volume      DOUBLE PRECISION NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	delisted    BOOLEAN     NOT NULL,
	PRIMARY KEY (from_date, to_date, ticker)
);
`

// ohlcvColumns is the column order stored in krxquery.daily_ohlcv
var ohlcvColumns = []string{resample.ColOpen, resample.ColHigh, resample.ColLow, resample.ColClose, resample.ColVolume}

// Repository stores OHLCV tables and price-change snapshots
// ⭐ SSOT: 동기화 데이터 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the krxquery schema and tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ohlcvRow is one stored bar
type ohlcvRow struct {
	date time.Time
	vals []float64
}

// ohlcvRows extracts the stored columns from a daily OHLCV table
func ohlcvRows(tbl *frame.Table) ([]ohlcvRow, error) {
	if tbl.Empty() {
		return nil, nil
	}
	sel, err := tbl.Select(ohlcvColumns...)
	if err != nil {
		return nil, fmt.Errorf("ohlcv table: %w", err)
	}

	rows := make([]ohlcvRow, sel.Len())
	for i := range rows {
		rows[i] = ohlcvRow{date: sel.Date(i), vals: sel.Row(i)}
	}
	return rows, nil
}

// SaveOHLCV upserts a daily OHLCV table by (ticker, date, adjusted) and
// returns the number of rows written
func (r *Repository) SaveOHLCV(ctx context.Context, ticker string, adjusted bool, tbl *frame.Table) (int, error) {
	rows, err := ohlcvRows(tbl)
	if err != nil || len(rows) == 0 {
		return 0, err
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO krxquery.daily_ohlcv
			(ticker, trade_date, adjusted, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker, trade_date, adjusted) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume,
			updated_at = NOW()`

	for _, row := range rows {
		batch.Queue(query, ticker, row.date, adjusted,
			row.vals[0], row.vals[1], row.vals[2], row.vals[3], row.vals[4])
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return 0, fmt.Errorf("save ohlcv %s: %w", ticker, err)
		}
	}
	return len(rows), nil
}

// LoadOHLCV reads stored bars between from and to (inclusive)
func (r *Repository) LoadOHLCV(ctx context.Context, ticker string, adjusted bool, from, to time.Time) (*frame.Table, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM krxquery.daily_ohlcv
		WHERE ticker = $1 AND adjusted = $2 AND trade_date BETWEEN $3 AND $4
		ORDER BY trade_date ASC`

	rows, err := r.pool.Query(ctx, query, ticker, adjusted, from, to)
	if err != nil {
		return nil, fmt.Errorf("load ohlcv %s: %w", ticker, err)
	}
	defer rows.Close()

	tbl := frame.NewTable(ohlcvColumns...)
	for rows.Next() {
		var (
			d                      time.Time
			open, high, low, close float64
			volume                 float64
		)
		if err := rows.Scan(&d, &open, &high, &low, &close, &volume); err != nil {
			return nil, fmt.Errorf("scan ohlcv %s: %w", ticker, err)
		}
		if err := tbl.Append(d, open, high, low, close, volume); err != nil {
			return nil, err
		}
	}
	return tbl, rows.Err()
}

// SavePriceChanges stores a range ranking snapshot, flagging backfilled
// delisted rows
func (r *Repository) SavePriceChanges(ctx context.Context, from, to time.Time, changes []market.PriceChange) error {
	if len(changes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO krxquery.price_changes
			(from_date, to_date, ticker, name, open_price, close_price, change, change_rate, volume, value, delisted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (from_date, to_date, ticker) DO UPDATE SET
			name = EXCLUDED.name,
			open_price = EXCLUDED.open_price,
			close_price = EXCLUDED.close_price,
			change = EXCLUDED.change,
			change_rate = EXCLUDED.change_rate,
			volume = EXCLUDED.volume,
			value = EXCLUDED.value,
			delisted = EXCLUDED.delisted`

	for _, c := range changes {
		batch.Queue(query, from, to, c.Ticker, c.Name, c.Open, c.Close,
			c.Change, c.ChangeRate, c.Volume, c.Value, isDelisted(c))
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range changes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save price changes: %w", err)
		}
	}
	return nil
}

// isDelisted recognises rows produced by delisting.Backfill
func isDelisted(c market.PriceChange) bool {
	return c.Close == 0 && c.ChangeRate == delisting.DelistedChangeRate && c.Volume == 0
}
