// Package sqlitebars implements the BarSource collaborator on top of a
// SQLite bar archive maintained by an external ingest process.
package sqlitebars

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"screener-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// defaultHistoryLimit bounds how many bars a single history read returns.
// 300 daily bars comfortably covers the longest warm-up (SMA 200).
const defaultHistoryLimit = 300

// Reader provides read-only bar history access.
type Reader struct {
	db    *sql.DB
	limit int
	log   *slog.Logger
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string, logger *slog.Logger) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("sqlite bar source opened", slog.String("path", dbPath))
	return &Reader{db: db, limit: defaultHistoryLimit, log: logger}, nil
}

// History returns the most recent bars for a symbol in chronological
// order, plus the prior session's close.
func (r *Reader) History(ctx context.Context, symbol string) (model.BarHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume, vwap, trade_count
		FROM bars
		WHERE symbol = ?
		ORDER BY ts DESC
		LIMIT ?
	`, symbol, r.limit)
	if err != nil {
		return model.BarHistory{}, fmt.Errorf("sqlite query bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		var tsUnix int64
		var vwap sql.NullFloat64
		var trades sql.NullInt64
		if err := rows.Scan(&tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &vwap, &trades); err != nil {
			return model.BarHistory{}, fmt.Errorf("sqlite scan bars for %s: %w", symbol, err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		if vwap.Valid {
			b.VWAP = &vwap.Float64
		}
		if trades.Valid {
			b.TradeCount = &trades.Int64
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return model.BarHistory{}, fmt.Errorf("sqlite rows for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return model.BarHistory{}, fmt.Errorf("no bars stored for %s", symbol)
	}

	// Reverse to chronological order
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	prevClose, err := r.prevSessionClose(ctx, symbol, bars[len(bars)-1].TS)
	if err != nil {
		// Absent prior session close only disables changePercent; not fatal.
		r.log.Warn("previous session close unavailable",
			slog.String("symbol", symbol), slog.Any("err", err))
	}

	return model.BarHistory{Symbol: symbol, Bars: bars, PrevClose: prevClose}, nil
}

// prevSessionClose returns the close of the last session before the day
// of lastTS.
func (r *Reader) prevSessionClose(ctx context.Context, symbol string, lastTS time.Time) (float64, error) {
	dayStart := time.Date(lastTS.Year(), lastTS.Month(), lastTS.Day(), 0, 0, 0, 0, time.UTC)
	var close float64
	err := r.db.QueryRowContext(ctx, `
		SELECT close FROM bars
		WHERE symbol = ? AND ts < ?
		ORDER BY ts DESC
		LIMIT 1
	`, symbol, dayStart.Unix()).Scan(&close)
	if err != nil {
		return 0, err
	}
	return close, nil
}

// Close releases underlying resources.
func (r *Reader) Close() error { return r.db.Close() }
