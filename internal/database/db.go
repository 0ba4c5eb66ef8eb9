package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/Alias1177/TrendScreener/internal/report"
)

const reportTable = "report_rows"

// DB represents a database connection
type DB struct {
	*sqlx.DB
	timeout time.Duration
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Timeout  time.Duration
}

// New creates a new database connection
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return Wrap(db, params.Timeout), nil
}

// Wrap uses an existing connection without touching the schema
func Wrap(db *sqlx.DB, timeout time.Duration) *DB {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DB{DB: db, timeout: timeout}
}

// createTables creates the report table if it doesn't exist
func createTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS report_rows (
			run_name TEXT NOT NULL,
			row_index INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (run_name, row_index)
		)
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Persist replaces the rows stored under name with the table, one JSONB
// document per row keyed by column name
func (db *DB) Persist(ctx context.Context, name string, t report.Table) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM report_rows WHERE run_name = $1`, name); err != nil {
		return "", fmt.Errorf("clear run %s: %w", name, err)
	}

	for i := range t.Rows {
		row := t.Map(i)
		data, err := json.Marshal(row)
		if err != nil {
			return "", fmt.Errorf("marshal row %d: %w", i, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO report_rows (run_name, row_index, symbol, data)
			VALUES ($1, $2, $3, $4)
		`, name, i, row["symbol"], data)
		if err != nil {
			return "", fmt.Errorf("insert %s: %w", row["symbol"], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	return fmt.Sprintf("postgres:%s/%s", reportTable, name), nil
}
