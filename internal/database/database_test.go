package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edstats/schema-chat/internal/errors"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open("sqlite", path, 2, 10*time.Second)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()

	stmts := []string{
		`CREATE TABLE school_main (UNITID BIGINT PRIMARY KEY, INSTNM VARCHAR, STABBR VARCHAR)`,
		`CREATE TABLE school_costs (UNITID BIGINT PRIMARY KEY, TUITIONFEE_IN VARCHAR)`,
		`CREATE TABLE Schema_Information (
			TABLE_NAME VARCHAR, COLUMN_NAME VARCHAR, DATA_TYPE VARCHAR,
			DESCRIPTION TEXT, GROUP_CATEGORY VARCHAR)`,
		`INSERT INTO school_main VALUES (100654, 'Alabama A & M University', 'AL')`,
		`INSERT INTO school_main VALUES (100663, 'University of Alabama at Birmingham', 'AL')`,
	}
	for _, stmt := range stmts {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	return db
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", "dsn", 1, time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDatabase))
}

func TestListUsableTables_ExcludesMetadata(t *testing.T) {
	db := openTestDB(t)

	tables, err := db.ListUsableTables(context.Background())
	require.NoError(t, err)

	// Metadata table is excluded case-insensitively
	assert.Equal(t, []string{"school_costs", "school_main"}, tables)
}

func TestDialect(t *testing.T) {
	db := openTestDB(t)
	assert.Equal(t, "sqlite", db.Dialect())
}

func TestTableDDL(t *testing.T) {
	db := openTestDB(t)

	ddl, err := db.TableDDL(context.Background(), "school_main")
	require.NoError(t, err)
	assert.Contains(t, ddl, "CREATE TABLE school_main")
	assert.Contains(t, ddl, "INSTNM")
}

func TestTableDDL_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.TableDDL(context.Background(), "missing_table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table not found")
}

func TestExecuteQuery(t *testing.T) {
	db := openTestDB(t)

	result, err := db.ExecuteQuery(context.Background(),
		`SELECT INSTNM, STABBR FROM school_main ORDER BY UNITID LIMIT 5`)
	require.NoError(t, err)

	assert.Contains(t, result, "INSTNM | STABBR")
	assert.Contains(t, result, "Alabama A & M University | AL")
}

func TestExecuteQuery_NoRows(t *testing.T) {
	db := openTestDB(t)

	result, err := db.ExecuteQuery(context.Background(),
		`SELECT INSTNM FROM school_main WHERE STABBR = 'ZZ'`)
	require.NoError(t, err)
	assert.Equal(t, "(no rows returned)", result)
}

func TestExecuteQuery_InvalidSQL(t *testing.T) {
	db := openTestDB(t)

	_, err := db.ExecuteQuery(context.Background(), `SELECT FROM nowhere`)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDatabase))
}
