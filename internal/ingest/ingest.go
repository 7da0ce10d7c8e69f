// Package ingest creates the education-statistics schema and loads College
// Scorecard CSV exports into it. One wide CSV row is split across the
// per-topic tables by column name; the metadata table is seeded with
// human-readable column descriptions that later feed the semantic index.
package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/edstats/schema-chat/internal/database"
	"github.com/edstats/schema-chat/internal/errors"
	"github.com/edstats/schema-chat/internal/logging"
)

// Database is the subset of database.DB the loader needs
type Database interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Stats summarizes one CSV load
type Stats struct {
	RowsRead     int
	RowsInserted int
	RowsFailed   int
}

// Loader creates tables and loads CSV data
type Loader struct {
	db     Database
	logger *logging.Logger
}

// NewLoader creates an ingest loader
func NewLoader(db Database, logger *logging.Logger) *Loader {
	return &Loader{
		db:     db,
		logger: logger,
	}
}

// tableSpec maps a destination table to the CSV columns it takes
type tableSpec struct {
	name      string
	createSQL string
	columns   []string
}

// columnMeta is one metadata row describing a column to a human reader
type columnMeta struct {
	table       string
	column      string
	dataType    string
	description string
	group       string
}

var tableSpecs = []tableSpec{
	{
		name: "school_main",
		createSQL: `CREATE TABLE IF NOT EXISTS school_main (
			UNITID BIGINT NOT NULL PRIMARY KEY, OPEID VARCHAR, INSTNM VARCHAR,
			CITY VARCHAR, STABBR VARCHAR, ZIP VARCHAR, INSTURL VARCHAR,
			CONTROL BIGINT, REGION BIGINT, LATITUDE DOUBLE, LONGITUDE DOUBLE,
			CURROPER BIGINT
		)`,
		columns: []string{
			"UNITID", "OPEID", "INSTNM", "CITY", "STABBR", "ZIP", "INSTURL",
			"CONTROL", "REGION", "LATITUDE", "LONGITUDE", "CURROPER",
		},
	},
	{
		name: "school_admissions",
		createSQL: `CREATE TABLE IF NOT EXISTS school_admissions (
			UNITID BIGINT NOT NULL PRIMARY KEY, ADM_RATE VARCHAR, SAT_AVG VARCHAR,
			ACTCMMID VARCHAR,
			FOREIGN KEY (UNITID) REFERENCES school_main(UNITID)
		)`,
		columns: []string{"UNITID", "ADM_RATE", "SAT_AVG", "ACTCMMID"},
	},
	{
		name: "school_costs",
		createSQL: `CREATE TABLE IF NOT EXISTS school_costs (
			UNITID BIGINT NOT NULL PRIMARY KEY, COSTT4_A VARCHAR, TUITIONFEE_IN VARCHAR,
			TUITIONFEE_OUT VARCHAR, ROOMBOARD_ON VARCHAR,
			FOREIGN KEY (UNITID) REFERENCES school_main(UNITID)
		)`,
		columns: []string{"UNITID", "COSTT4_A", "TUITIONFEE_IN", "TUITIONFEE_OUT", "ROOMBOARD_ON"},
	},
	{
		name: "school_student_demographics",
		createSQL: `CREATE TABLE IF NOT EXISTS school_student_demographics (
			UNITID BIGINT NOT NULL PRIMARY KEY, UGDS BIGINT, UGDS_WHITE DOUBLE,
			UGDS_BLACK DOUBLE, UGDS_HISP DOUBLE, UGDS_ASIAN DOUBLE,
			UGDS_MEN DOUBLE, UGDS_WOMEN DOUBLE,
			FOREIGN KEY (UNITID) REFERENCES school_main(UNITID)
		)`,
		columns: []string{
			"UNITID", "UGDS", "UGDS_WHITE", "UGDS_BLACK", "UGDS_HISP",
			"UGDS_ASIAN", "UGDS_MEN", "UGDS_WOMEN",
		},
	},
	{
		name: "school_earnings_p10",
		createSQL: `CREATE TABLE IF NOT EXISTS school_earnings_p10 (
			UNITID BIGINT NOT NULL PRIMARY KEY, COUNT_WNE_P10 VARCHAR,
			MD_EARN_WNE_P10 VARCHAR, GT_25K_P10 VARCHAR,
			FOREIGN KEY (UNITID) REFERENCES school_main(UNITID)
		)`,
		columns: []string{"UNITID", "COUNT_WNE_P10", "MD_EARN_WNE_P10", "GT_25K_P10"},
	},
}

var columnMetadata = []columnMeta{
	{"school_main", "UNITID", "BIGINT", "Unit ID for institution", "School Identification"},
	{"school_main", "OPEID", "VARCHAR", "8-digit OPE ID for institution", "School Identification"},
	{"school_main", "INSTNM", "VARCHAR", "Institution name", "School Identification"},
	{"school_main", "CITY", "VARCHAR", "City where the institution is located", "Location"},
	{"school_main", "STABBR", "VARCHAR", "State postcode abbreviation", "Location"},
	{"school_main", "ZIP", "VARCHAR", "ZIP code of the institution", "Location"},
	{"school_main", "INSTURL", "VARCHAR", "URL of the institution's homepage", "School Identification"},
	{"school_main", "CONTROL", "BIGINT", "Control of institution (1 public, 2 private nonprofit, 3 private for-profit)", "School Characteristics"},
	{"school_main", "REGION", "BIGINT", "Region code (IPEDS)", "Location"},
	{"school_main", "LATITUDE", "DOUBLE", "Latitude of the institution", "Location"},
	{"school_main", "LONGITUDE", "DOUBLE", "Longitude of the institution", "Location"},
	{"school_main", "CURROPER", "BIGINT", "Flag for currently operating institution", "School Characteristics"},
	{"school_admissions", "ADM_RATE", "VARCHAR", "Admission rate", "Admissions"},
	{"school_admissions", "SAT_AVG", "VARCHAR", "Average SAT equivalent score of students admitted", "Admissions"},
	{"school_admissions", "ACTCMMID", "VARCHAR", "Midpoint of the ACT cumulative score", "Admissions"},
	{"school_costs", "COSTT4_A", "VARCHAR", "Average cost of attendance (academic year institutions)", "Costs"},
	{"school_costs", "TUITIONFEE_IN", "VARCHAR", "In-state tuition and fees", "Costs"},
	{"school_costs", "TUITIONFEE_OUT", "VARCHAR", "Out-of-state tuition and fees", "Costs"},
	{"school_costs", "ROOMBOARD_ON", "VARCHAR", "On-campus room and board cost", "Costs"},
	{"school_student_demographics", "UGDS", "BIGINT", "Enrollment of undergraduate certificate/degree-seeking students", "Student Demographics"},
	{"school_student_demographics", "UGDS_WHITE", "DOUBLE", "Share of enrollment of students who are white", "Student Demographics"},
	{"school_student_demographics", "UGDS_BLACK", "DOUBLE", "Share of enrollment of students who are black", "Student Demographics"},
	{"school_student_demographics", "UGDS_HISP", "DOUBLE", "Share of enrollment of students who are Hispanic", "Student Demographics"},
	{"school_student_demographics", "UGDS_ASIAN", "DOUBLE", "Share of enrollment of students who are Asian", "Student Demographics"},
	{"school_student_demographics", "UGDS_MEN", "DOUBLE", "Share of enrollment of students who are men", "Student Demographics"},
	{"school_student_demographics", "UGDS_WOMEN", "DOUBLE", "Share of enrollment of students who are women", "Student Demographics"},
	{"school_earnings_p10", "COUNT_WNE_P10", "VARCHAR", "Number of students working and not enrolled 10 years after entry", "Earnings"},
	{"school_earnings_p10", "MD_EARN_WNE_P10", "VARCHAR", "Median earnings of students working and not enrolled 10 years after entry", "Earnings"},
	{"school_earnings_p10", "GT_25K_P10", "VARCHAR", "Share of students earning over $25,000/year 10 years after entry", "Earnings"},
}

// CreateTables creates the data tables and reseeds the metadata table
func (l *Loader) CreateTables(ctx context.Context) error {
	for _, spec := range tableSpecs {
		if _, err := l.db.ExecContext(ctx, spec.createSQL); err != nil {
			return errors.Wrapf(err, errors.ErrTypeIngest, "failed to create table %s", spec.name)
		}
	}

	metaSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		TABLE_NAME VARCHAR NOT NULL, COLUMN_NAME VARCHAR NOT NULL,
		DATA_TYPE VARCHAR NOT NULL, DESCRIPTION TEXT, GROUP_CATEGORY VARCHAR
	)`, database.MetadataTable)

	if _, err := l.db.ExecContext(ctx, metaSQL); err != nil {
		return errors.Wrap(err, errors.ErrTypeIngest, "failed to create metadata table")
	}

	if _, err := l.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s", database.MetadataTable)); err != nil {
		return errors.Wrap(err, errors.ErrTypeIngest, "failed to clear metadata table")
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s VALUES (?, ?, ?, ?, ?)", database.MetadataTable)

	for _, meta := range columnMetadata {
		_, err := l.db.ExecContext(ctx, insertSQL,
			meta.table, meta.column, meta.dataType, meta.description, meta.group)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeIngest,
				"failed to seed metadata for %s.%s", meta.table, meta.column)
		}
	}

	l.logger.WithField("tables", len(tableSpecs)).Info("Created schema")

	return nil
}

// LoadCSV reads a scorecard CSV export and distributes each row across the
// data tables. Bad rows are logged and skipped; duplicates count as failed.
func (l *Loader) LoadCSV(ctx context.Context, path string) (*Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeIngest, "failed to open CSV file %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeIngest, "failed to read CSV header")
	}

	headerMap := make(map[string]int, len(header))
	for i, name := range header {
		// Exports often carry a UTF-8 BOM on the first cell
		headerMap[strings.TrimPrefix(name, "\uFEFF")] = i
	}

	stats := &Stats{}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			stats.RowsFailed++
			l.logger.Warnf("Skipping malformed CSV row: %v", err)

			continue
		}

		stats.RowsRead++

		if l.insertRow(ctx, headerMap, row) {
			stats.RowsInserted++
		} else {
			stats.RowsFailed++
		}
	}

	l.logger.WithField("inserted", stats.RowsInserted).
		WithField("failed", stats.RowsFailed).
		Info("CSV load complete")

	return stats, nil
}

// insertRow writes one CSV row into every data table. A failure on one
// table is logged and does not prevent the others; the row counts as
// inserted if every table accepted it.
func (l *Loader) insertRow(ctx context.Context, headerMap map[string]int, row []string) bool {
	ok := true

	for _, spec := range tableSpecs {
		values := make([]any, 0, len(spec.columns))

		for _, col := range spec.columns {
			idx, found := headerMap[col]
			if !found || idx >= len(row) {
				values = append(values, nil)
				continue
			}

			values = append(values, normalizeValue(row[idx]))
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(spec.columns)), ", ")
		insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			spec.name, strings.Join(spec.columns, ", "), placeholders)

		if _, err := l.db.ExecContext(ctx, insertSQL, values...); err != nil {
			l.logger.WithField("table", spec.name).
				Warnf("Failed to insert row: %v", err)

			ok = false
		}
	}

	return ok
}

// normalizeValue maps empty and literal NULL cells to database NULL
func normalizeValue(value string) any {
	if value == "" || strings.EqualFold(value, "NULL") {
		return nil
	}

	return value
}
