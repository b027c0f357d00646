package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockgenie/models"
)

// DB is a PostgreSQL-backed bar store.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// The database may still be coming up; retry the ping with
	// exponential backoff before giving up.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(db.Ping, bo); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db, log.With().Str("component", "bar_store").Logger()}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stock_data (
			symbol TEXT NOT NULL,
			date DATE NOT NULL,
			open NUMERIC(18,6) NOT NULL,
			high NUMERIC(18,6) NOT NULL,
			low NUMERIC(18,6) NOT NULL,
			close NUMERIC(18,6) NOT NULL,
			volume BIGINT NOT NULL,
			adjusted_close NUMERIC(18,6) NOT NULL,
			data_source TEXT NOT NULL,
			PRIMARY KEY (symbol, date)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS technical_analysis (
			symbol TEXT NOT NULL,
			date DATE NOT NULL,
			indicator_type TEXT NOT NULL,
			period INT NOT NULL,
			value NUMERIC(24,6) NOT NULL,
			signal NUMERIC(24,6),
			histogram NUMERIC(24,6),
			metadata TEXT,
			PRIMARY KEY (symbol, date, indicator_type, period)
		)
	`)
	return err
}

// HasRange reports whether any bars are stored for the symbol inside
// [start, end]. Full-coverage detection would need a trading calendar;
// existence is the contract here, matching upstream lookup behavior.
func (db *DB) HasRange(ctx context.Context, symbol string, start, end time.Time) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM stock_data
			WHERE symbol = $1 AND date BETWEEN $2 AND $3
		)
	`, symbol, start, end).Scan(&exists)
	return exists, err
}

// GetRange returns stored bars for the symbol in [start, end], ascending by date.
func (db *DB) GetRange(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume, adjusted_close, data_source
		FROM stock_data
		WHERE symbol = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC
	`, symbol, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(
			&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close,
			&b.Volume, &b.AdjustedClose, &b.Source,
		); err != nil {
			return nil, err
		}
		b.Date = b.Date.UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// UpsertBars inserts or replaces bars keyed by (symbol, date).
func (db *DB) UpsertBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_data (
			symbol, date, open, high, low, close, volume, adjusted_close, data_source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, date)
		DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			adjusted_close = EXCLUDED.adjusted_close,
			data_source = EXCLUDED.data_source
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close,
			b.Volume, b.AdjustedClose, b.Source,
		); err != nil {
			return fmt.Errorf("upserting bar %s/%s: %w", b.Symbol, b.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	db.logger.Debug().Int("count", len(bars)).Msg("upserted bars")
	return nil
}

// UpsertIndicatorSamples inserts or replaces samples keyed by
// (symbol, date, indicator_type, period).
func (db *DB) UpsertIndicatorSamples(ctx context.Context, samples []models.IndicatorSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO technical_analysis (
			symbol, date, indicator_type, period, value, signal, histogram, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date, indicator_type, period)
		DO UPDATE SET
			value = EXCLUDED.value,
			signal = EXCLUDED.signal,
			histogram = EXCLUDED.histogram,
			metadata = EXCLUDED.metadata
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx,
			s.Symbol, s.Date, string(s.Indicator), s.Period,
			s.Value, s.Signal, s.Histogram, nullString(s.Metadata),
		); err != nil {
			return fmt.Errorf("upserting sample %s/%s/%s: %w", s.Symbol, s.Indicator, s.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	db.logger.Debug().Int("count", len(samples)).Msg("upserted indicator samples")
	return nil
}

// LatestDate returns the most recent stored date for a symbol.
func (db *DB) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return db.boundaryDate(ctx, symbol, "MAX")
}

// EarliestDate returns the oldest stored date for a symbol.
func (db *DB) EarliestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return db.boundaryDate(ctx, symbol, "MIN")
}

func (db *DB) boundaryDate(ctx context.Context, symbol, agg string) (time.Time, bool, error) {
	var date sql.NullTime
	query := fmt.Sprintf(`SELECT %s(date) FROM stock_data WHERE symbol = $1`, agg)
	err := db.QueryRowContext(ctx, query, symbol).Scan(&date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	return date.Time.UTC(), true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
