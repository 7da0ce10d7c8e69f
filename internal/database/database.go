// Package database wraps the relational database the agent queries. It
// introspects table structure, hides the reserved metadata table from the
// user-facing table set, and executes the read queries issued by agent tools.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"

	"github.com/edstats/schema-chat/internal/errors"
)

// MetadataTable is the reserved helper table holding column descriptions.
// It is never listed, indexed, or exposed to the agent.
const MetadataTable = "schema_information"

// maxResultRows bounds how many rows a single tool query can return to the
// model, independent of the row-limit policy stated in the prompt.
const maxResultRows = 50

// DB represents a connection to the target relational database
type DB struct {
	conn         *sql.DB
	driver       string
	queryTimeout time.Duration
}

// Open opens a database connection for the given driver ("sqlite" or "duckdb")
func Open(driver, path string, maxOpenConns int, queryTimeout time.Duration) (*DB, error) {
	driver = strings.ToLower(driver)

	switch driver {
	case "sqlite", "duckdb":
	default:
		return nil, errors.Newf(errors.ErrTypeDatabase, "unsupported driver: %s", driver)
	}

	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to open %s database", driver)
	}

	conn.SetMaxOpenConns(maxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "database is not reachable")
	}

	return &DB{
		conn:         conn,
		driver:       driver,
		queryTimeout: queryTimeout,
	}, nil
}

// Dialect returns the SQL dialect name injected into the agent prompt
func (db *DB) Dialect() string {
	return db.driver
}

// Close closes the underlying connection pool
func (db *DB) Close() error {
	return db.conn.Close()
}

// QueryContext runs a raw query against the database. The caller owns the
// returned rows and should bound ctx itself; methods on DB apply the
// configured query timeout before delegating here.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...) //nolint:sqlclosecheck // caller closes rows
}

// timeoutCtx derives a context bounded by the configured query timeout. The
// cancel func must outlive consumption of any rows read under the context.
func (db *DB) timeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.queryTimeout)
}

// ExecContext runs a statement against the database with the configured timeout
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := db.timeoutCtx(ctx)
	defer cancel()

	return db.conn.ExecContext(ctx, query, args...)
}

// ListUsableTables returns the user-queryable table names in sorted order.
// The reserved metadata table is excluded regardless of letter case.
func (db *DB) ListUsableTables(ctx context.Context) ([]string, error) {
	var query string

	switch db.driver {
	case "sqlite":
		query = `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
	case "duckdb":
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = 'main' AND table_type = 'BASE TABLE'`
	}

	ctx, cancel := db.timeoutCtx(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list tables")
	}
	defer rows.Close()

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan table name")
		}

		if strings.EqualFold(name, MetadataTable) {
			continue
		}

		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate tables")
	}

	sort.Strings(tables)

	return tables, nil
}

// TableDDL returns a textual structural definition of the given table
func (db *DB) TableDDL(ctx context.Context, table string) (string, error) {
	switch db.driver {
	case "sqlite":
		return db.sqliteDDL(ctx, table)
	case "duckdb":
		return db.duckdbDDL(ctx, table)
	}

	return "", errors.Newf(errors.ErrTypeDatabase, "unsupported driver: %s", db.driver)
}

func (db *DB) sqliteDDL(ctx context.Context, table string) (string, error) {
	ctx, cancel := db.timeoutCtx(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table)

	var ddl sql.NullString
	if err := row.Scan(&ddl); err != nil {
		if err == sql.ErrNoRows {
			return "", errors.Newf(errors.ErrTypeDatabase, "table not found: %s", table)
		}

		return "", errors.Wrapf(err, errors.ErrTypeDatabase, "failed to read DDL for %s", table)
	}

	if !ddl.Valid || ddl.String == "" {
		return "", errors.Newf(errors.ErrTypeDatabase, "no DDL recorded for table: %s", table)
	}

	return ddl.String, nil
}

// duckdbDDL synthesizes a CREATE TABLE statement from information_schema,
// since DuckDB does not keep the original statement text.
func (db *DB) duckdbDDL(ctx context.Context, table string) (string, error) {
	ctx, cancel := db.timeoutCtx(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		WHERE table_name = ? ORDER BY ordinal_position`, table)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeDatabase, "failed to read columns for %s", table)
	}
	defer rows.Close()

	var cols []string

	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return "", errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan column")
		}

		cols = append(cols, fmt.Sprintf("  %s %s", name, dataType))
	}

	if err := rows.Err(); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate columns")
	}

	if len(cols) == 0 {
		return "", errors.Newf(errors.ErrTypeDatabase, "table not found: %s", table)
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", table, strings.Join(cols, ",\n")), nil
}

// ExecuteQuery runs a single read query and formats the result set as a text
// block for the agent. Output is capped at maxResultRows rows.
func (db *DB) ExecuteQuery(ctx context.Context, query string) (string, error) {
	ctx, cancel := db.timeoutCtx(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeDatabase, "query execution failed")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeDatabase, "failed to read result columns")
	}

	var sb strings.Builder

	sb.WriteString(strings.Join(cols, " | "))
	sb.WriteString("\n")

	count := 0
	truncated := false

	for rows.Next() {
		if count >= maxResultRows {
			truncated = true
			break
		}

		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))

		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return "", errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan result row")
		}

		parts := make([]string, len(cols))
		for i, v := range values {
			parts[i] = formatValue(v)
		}

		sb.WriteString(strings.Join(parts, " | "))
		sb.WriteString("\n")

		count++
	}

	if err := rows.Err(); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate result rows")
	}

	if count == 0 {
		return "(no rows returned)", nil
	}

	if truncated {
		sb.WriteString(fmt.Sprintf("... (output truncated at %d rows)\n", maxResultRows))
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
