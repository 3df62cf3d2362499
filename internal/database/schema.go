/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"fmt"
	"strings"

	"stockchat/internal/logging"
	"stockchat/internal/render"
)

// Column describes one column of an introspected table.
type Column struct {
	Name     string
	DataType string
	Nullable bool
}

// Table describes one introspected table, optionally with a rendering of
// a few sample rows.
type Table struct {
	Name       string
	Columns    []Column
	SampleRows string
}

// Schema is the introspected shape of the inventory database, used to
// populate the schema section of the generation prompt.
type Schema struct {
	Tables []Table
}

// TableNames returns the table names in introspection order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Summary renders the schema as prompt-ready text: one block per table
// with its columns and, when requested at introspection time, sample rows.
func (s *Schema) Summary() string {
	var sb strings.Builder

	for i, t := range s.Tables {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Table: ")
		sb.WriteString(t.Name)
		sb.WriteString("\nColumns:")
		for _, col := range t.Columns {
			nullability := "NOT NULL"
			if col.Nullable {
				nullability = "NULL"
			}
			sb.WriteString(fmt.Sprintf("\n  %s %s %s", col.Name, col.DataType, nullability))
		}
		if t.SampleRows != "" {
			sb.WriteString("\nSample rows:\n")
			sb.WriteString(t.SampleRows)
		}
	}

	return sb.String()
}

// IntrospectSchema reads table and column definitions from the connected
// database. When the client is configured with a positive sample-row
// count, that many rows per table are fetched and rendered into the
// summary. Sample-row failures are logged and skipped rather than
// failing introspection.
func (c *Client) IntrospectSchema(ctx context.Context) (*Schema, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	tableNames, err := c.listTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	schema := &Schema{}
	for _, name := range tableNames {
		columns, err := c.listColumns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns for %s: %w", name, err)
		}

		table := Table{Name: name, Columns: columns}

		if c.sampleRows > 0 {
			sample, err := c.fetchSampleRows(ctx, name)
			if err != nil {
				logging.Warn("Failed to fetch sample rows",
					"table", name,
					"error", err.Error())
			} else {
				table.SampleRows = sample
			}
		}

		schema.Tables = append(schema.Tables, table)
	}

	logging.Info("Schema introspected",
		"tables", len(schema.Tables),
		"sample_rows", c.sampleRows)

	return schema, nil
}

// listTables returns user table names for the configured driver.
func (c *Client) listTables(ctx context.Context) ([]string, error) {
	var query string
	var args []interface{}

	switch c.driver {
	case "mysql":
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE' ORDER BY table_name"
		args = []interface{}{c.database}
	case "postgres":
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name"
	case "sqlite":
		query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.driver)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// listColumns returns column definitions for one table.
func (c *Client) listColumns(ctx context.Context, table string) ([]Column, error) {
	if c.driver == "sqlite" {
		return c.listColumnsSQLite(ctx, table)
	}

	var query string
	var args []interface{}

	switch c.driver {
	case "mysql":
		query = "SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position"
		args = []interface{}{c.database, table}
	case "postgres":
		query = "SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position"
		args = []interface{}{table}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.driver)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:     name,
			DataType: dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	return columns, rows.Err()
}

// listColumnsSQLite reads column definitions via PRAGMA table_info.
func (c *Client) listColumnsSQLite(ctx context.Context, table string) ([]Column, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier("sqlite", table)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var defaultValue interface{}
		var pk int
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:     name,
			DataType: dataType,
			Nullable: notNull == 0,
		})
	}
	return columns, rows.Err()
}

// fetchSampleRows renders up to sampleRows rows from a table.
func (c *Client) fetchSampleRows(ctx context.Context, table string) (string, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdentifier(c.driver, table), c.sampleRows)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()

	columns, results, err := collectRows(rows)
	if err != nil {
		return "", err
	}

	return render.FormatRows(columns, results), nil
}

// quoteIdentifier quotes a table name for the given driver.
func quoteIdentifier(driver, name string) string {
	if driver == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
