package schema

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edstats/schema-chat/internal/database"
	"github.com/edstats/schema-chat/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.GetLogger()
}

func openSeededDB(t *testing.T, withMetadata bool) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")

	db, err := database.Open("sqlite", path, 2, 10*time.Second)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()

	stmts := []string{
		`CREATE TABLE school_main (UNITID BIGINT PRIMARY KEY, INSTNM VARCHAR)`,
		`CREATE TABLE school_costs (UNITID BIGINT PRIMARY KEY, TUITIONFEE_IN VARCHAR)`,
	}

	if withMetadata {
		stmts = append(stmts,
			`CREATE TABLE schema_information (
				TABLE_NAME VARCHAR, COLUMN_NAME VARCHAR, DATA_TYPE VARCHAR,
				DESCRIPTION TEXT, GROUP_CATEGORY VARCHAR)`,
			`INSERT INTO schema_information VALUES
				('school_main', 'UNITID', 'BIGINT', 'Unit ID for institution', 'School Identification')`,
			`INSERT INTO schema_information VALUES
				('school_main', 'INSTNM', 'VARCHAR', 'Institution name', 'School Identification')`,
			`INSERT INTO schema_information VALUES
				('school_costs', 'TUITIONFEE_IN', 'VARCHAR', '', 'Costs')`,
		)
	}

	for _, stmt := range stmts {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	return db
}

func TestLoadDescriptions(t *testing.T) {
	db := openSeededDB(t, true)
	loader := NewLoader(db, testLogger())

	descs := loader.LoadDescriptions(context.Background())

	require.Len(t, descs["school_main"], 2)
	assert.Equal(t, "UNITID", descs["school_main"][0].ColumnName)
	assert.Equal(t, "Unit ID for institution", descs["school_main"][0].Description)
}

func TestLoadDescriptions_MissingMetadataTable(t *testing.T) {
	db := openSeededDB(t, false)
	loader := NewLoader(db, testLogger())

	descs := loader.LoadDescriptions(context.Background())

	// Absent metadata degrades to an empty map, never an error
	assert.Empty(t, descs)
}

func TestBuildDocuments(t *testing.T) {
	db := openSeededDB(t, true)
	loader := NewLoader(db, testLogger())

	ctx := context.Background()
	descs := loader.LoadDescriptions(ctx)
	docs := loader.BuildDocuments(ctx, []string{"school_main", "school_costs"}, descs)

	require.Len(t, docs, 2)

	assert.Equal(t, "school_main", docs[0].TableName)
	assert.Contains(t, docs[0].Content, "Table: school_main")
	assert.Contains(t, docs[0].Content, "CREATE TABLE school_main")
	assert.Contains(t, docs[0].Content, "Column descriptions:")
	assert.Contains(t, docs[0].Content, "- INSTNM: Institution name")
	assert.Equal(t, "schema", docs[0].Tags["type"])

	// Empty descriptions produce no description block
	assert.NotContains(t, docs[1].Content, "Column descriptions:")
}

func TestBuildDocuments_SkipsFailingTable(t *testing.T) {
	db := openSeededDB(t, false)
	loader := NewLoader(db, testLogger())

	ctx := context.Background()
	docs := loader.BuildDocuments(ctx,
		[]string{"school_main", "no_such_table", "school_costs"}, nil)

	// The failing table is skipped without aborting the rest
	require.Len(t, docs, 2)
	assert.Equal(t, "school_main", docs[0].TableName)
	assert.Equal(t, "school_costs", docs[1].TableName)
}
