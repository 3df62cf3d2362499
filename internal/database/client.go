/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package database manages the inventory database connection and runs
// generated SQL against it. It speaks to MySQL, PostgreSQL, and SQLite
// through database/sql so the rest of the pipeline never sees a
// driver-specific type.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockchat/internal/config"
	"stockchat/internal/logging"
	"stockchat/internal/render"

	// Database drivers registered by side effect.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// driverNames maps configured driver names to database/sql driver names.
var driverNames = map[string]string{
	"mysql":    "mysql",
	"postgres": "pgx",
	"sqlite":   "sqlite",
}

// Client wraps a database connection for query execution and schema
// introspection. One Client serves one pipeline instance; it is safe for
// concurrent use because *sql.DB is.
type Client struct {
	db         *sql.DB
	driver     string
	dsn        string
	database   string
	sampleRows int
}

// NewClient creates a client from the database configuration. Connect
// must be called before any queries run.
func NewClient(cfg config.DatabaseConfig) (*Client, error) {
	if _, ok := driverNames[cfg.Driver]; !ok {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres, sqlite)", cfg.Driver)
	}

	return &Client{
		driver:     cfg.Driver,
		dsn:        cfg.BuildDSN(),
		database:   cfg.Database,
		sampleRows: cfg.SampleRows,
	}, nil
}

// Connect opens the connection pool and verifies the database is
// reachable with a ping.
func (c *Client) Connect(ctx context.Context) error {
	startTime := time.Now()

	db, err := sql.Open(driverNames[c.driver], c.dsn)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("unable to ping database: %w", err)
	}

	c.db = db

	logging.Info("Database connected",
		"driver", c.driver,
		"database", c.database,
		"duration_ms", time.Since(startTime).Milliseconds())

	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Driver returns the configured driver name.
func (c *Client) Driver() string {
	return c.driver
}

// Run executes a SQL statement and returns its result rendered as text.
// Statements that return no rows still yield the header line. Execution
// errors are returned to the caller untouched; the pipeline decides how
// to fold them into the answer.
func (c *Client) Run(ctx context.Context, statement string) (string, error) {
	if c.db == nil {
		return "", fmt.Errorf("database not connected")
	}

	startTime := time.Now()

	rows, err := c.db.QueryContext(ctx, statement)
	if err != nil {
		logging.Debug("Query failed",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return "", err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn("Failed to close result rows", "error", err.Error())
		}
	}()

	columns, results, err := collectRows(rows)
	if err != nil {
		return "", err
	}

	logging.Debug("Query executed",
		"columns", len(columns),
		"rows", len(results),
		"duration_ms", time.Since(startTime).Milliseconds())

	return render.FormatRows(columns, results), nil
}

// collectRows drains a result set into column names and generic values.
func collectRows(rows *sql.Rows) ([]string, [][]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var results [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return columns, results, nil
}
