// Package schema builds the per-table documents that feed the semantic index.
// Each document combines a table's structural definition with optional
// human-written column descriptions from the metadata table.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/edstats/schema-chat/internal/database"
	"github.com/edstats/schema-chat/internal/logging"
)

// Document is the unit of semantic retrieval: one text blob per table
type Document struct {
	TableName string
	Content   string
	Tags      map[string]string
}

// ColumnDescription is a free-text description of one column, sourced from
// the metadata table
type ColumnDescription struct {
	TableName   string
	ColumnName  string
	Description string
}

// Database is the subset of database.DB the loader needs
type Database interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	TableDDL(ctx context.Context, table string) (string, error)
}

// Loader reads schema metadata and assembles documents
type Loader struct {
	db     Database
	logger *logging.Logger
}

// NewLoader creates a schema loader
func NewLoader(db Database, logger *logging.Logger) *Loader {
	return &Loader{
		db:     db,
		logger: logger,
	}
}

// LoadDescriptions reads column descriptions from the metadata table, keyed
// by table name. A missing or unreadable metadata table degrades to an empty
// map; this never fails the caller.
func (l *Loader) LoadDescriptions(ctx context.Context) map[string][]ColumnDescription {
	descriptions := make(map[string][]ColumnDescription)

	query := fmt.Sprintf(
		`SELECT table_name, column_name, description FROM %s`, database.MetadataTable)

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		l.logger.Debugf("No column descriptions available: %v", err)
		return descriptions
	}
	defer rows.Close()

	for rows.Next() {
		var desc ColumnDescription
		if err := rows.Scan(&desc.TableName, &desc.ColumnName, &desc.Description); err != nil {
			l.logger.Debugf("Skipping malformed description row: %v", err)
			continue
		}

		descriptions[desc.TableName] = append(descriptions[desc.TableName], desc)
	}

	if err := rows.Err(); err != nil {
		l.logger.Debugf("Stopped reading descriptions early: %v", err)
	}

	return descriptions
}

// BuildDocuments assembles one document per usable table. A table whose
// structural definition cannot be read is logged as a warning and skipped;
// the remaining tables still produce documents.
func (l *Loader) BuildDocuments(
	ctx context.Context,
	tables []string,
	descriptions map[string][]ColumnDescription,
) []Document {
	docs := make([]Document, 0, len(tables))

	for _, table := range tables {
		ddl, err := l.db.TableDDL(ctx, table)
		if err != nil {
			l.logger.WithField("table", table).Warnf("Could not process table: %v", err)
			continue
		}

		parts := []string{fmt.Sprintf("Table: %s", table), ddl}

		if block := descriptionBlock(descriptions[table]); block != "" {
			parts = append(parts, block)
		}

		docs = append(docs, Document{
			TableName: table,
			Content:   strings.Join(parts, "\n\n"),
			Tags:      map[string]string{"type": "schema"},
		})
	}

	return docs
}

// descriptionBlock renders a human-readable column description list,
// omitting columns with empty descriptions
func descriptionBlock(descs []ColumnDescription) string {
	var lines []string

	for _, d := range descs {
		if d.Description == "" {
			continue
		}

		lines = append(lines, fmt.Sprintf("- %s: %s", d.ColumnName, d.Description))
	}

	if len(lines) == 0 {
		return ""
	}

	return "Column descriptions:\n" + strings.Join(lines, "\n")
}
