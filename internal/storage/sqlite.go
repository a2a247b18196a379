// Package storage persists cleaned sales tables to a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	perrors "salespipeline/internal/errors"
	"salespipeline/internal/infrastructure"
	"salespipeline/pkg/contracts/domain"
)

// SQLite column types per schema column
var columnTypes = map[string]string{
	domain.ColumnDate:     "TEXT",
	domain.ColumnProduct:  "TEXT",
	domain.ColumnCategory: "TEXT",
	domain.ColumnRegion:   "TEXT",
	domain.ColumnRevenue:  "REAL",
	domain.ColumnMonth:    "TEXT",
	domain.ColumnMonthNum: "INTEGER",
	domain.ColumnQuarter:  "INTEGER",
	domain.ColumnYear:     "INTEGER",
}

// SQLite column types for extra columns, by inferred kind; object is TEXT
var kindTypes = map[domain.ColumnKind]string{
	domain.ColumnKindInt:      "INTEGER",
	domain.ColumnKindFloat:    "REAL",
	domain.ColumnKindDatetime: "TIMESTAMP",
}

// DateLayout is the text form of Date values in the database
const DateLayout = "2006-01-02 15:04:05"

// Store writes sales tables to one SQLite file.
// Every call opens its own connection and closes it before returning.
type Store struct {
	path   string
	table  string
	logger *slog.Logger
}

// NewStore creates a store for the database at path, using the given table name
func NewStore(path, table string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		table:  table,
		logger: infrastructure.WithComponent(logger, "storage"),
	}
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s: %w", s.path, err)
	}
	return db, nil
}

// ReplaceSales drops and recreates the sales table, then inserts every record,
// all in a single transaction. Any failure leaves the previous table intact.
func (s *Store) ReplaceSales(ctx context.Context, table *domain.SalesTable) (int, error) {
	const op = "database write"

	db, err := s.open(ctx)
	if err != nil {
		return 0, perrors.NewStorageError(op, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, perrors.NewStorageError(op, fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	name := quoteIdent(s.table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return 0, perrors.NewStorageError(op, fmt.Errorf("drop table: %w", err))
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(name, table)); err != nil {
		return 0, perrors.NewStorageError(op, fmt.Errorf("create table: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(name, table.Columns))
	if err != nil {
		return 0, perrors.NewStorageError(op, fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	extra := make(map[string]int, len(table.ExtraColumns))
	for i, col := range table.ExtraColumns {
		extra[col] = i
	}

	args := make([]interface{}, len(table.Columns))
	for i, rec := range table.Records {
		for j, col := range table.Columns {
			args[j] = columnValue(rec, col, extra)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, perrors.NewStorageError(op, fmt.Errorf("insert record %d: %w", i+1, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, perrors.NewStorageError(op, fmt.Errorf("commit: %w", err))
	}

	s.logger.InfoContext(ctx, "Sales table replaced",
		slog.String("database", s.path),
		slog.String("table", s.table),
		slog.Int("rows", table.Len()))

	return table.Len(), nil
}

// Verification is the result of reading the stored table back
type Verification struct {
	Count    int        `json:"count"`
	Expected int        `json:"expected"`
	Sample   [][]string `json:"sample"`
	Columns  []string   `json:"columns"`
}

// Matches reports whether the stored row count equals the expected count
func (v *Verification) Matches() bool {
	return v.Count == v.Expected
}

// Verify reads back the row count, the first sampleSize rows and the column
// names of the stored table. A count mismatch is logged, not returned.
func (s *Store) Verify(ctx context.Context, expected, sampleSize int) (*Verification, error) {
	const op = "database verification"

	db, err := s.open(ctx)
	if err != nil {
		return nil, perrors.NewStorageError(op, err)
	}
	defer db.Close()

	name := quoteIdent(s.table)
	v := &Verification{Expected: expected}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&v.Count); err != nil {
		return nil, perrors.NewStorageError(op, fmt.Errorf("count rows: %w", err))
	}

	v.Sample, err = querySample(ctx, db, name, sampleSize)
	if err != nil {
		return nil, perrors.NewStorageError(op, err)
	}

	v.Columns, err = tableColumns(ctx, db, s.table)
	if err != nil {
		return nil, perrors.NewStorageError(op, err)
	}

	if !v.Matches() {
		s.logger.WarnContext(ctx, "Stored row count differs from table",
			slog.Int("stored", v.Count),
			slog.Int("expected", expected))
	}
	return v, nil
}

func querySample(ctx context.Context, db *sql.DB, name string, limit int) ([][]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", name, limit))
	if err != nil {
		return nil, fmt.Errorf("query sample: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sample columns: %w", err)
	}

	var sample [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]interface{}, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		sample = append(sample, row)
	}
	return sample, rows.Err()
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

func createTableSQL(name string, table *domain.SalesTable) string {
	extraTypes := make(map[string]string, len(table.ExtraKinds))
	for i, kind := range table.ExtraKinds {
		if i < len(table.ExtraColumns) {
			extraTypes[table.ExtraColumns[i]] = kindTypes[kind]
		}
	}

	defs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		typ, ok := columnTypes[col]
		if !ok {
			typ = extraTypes[col]
		}
		if typ == "" {
			typ = "TEXT"
		}
		defs[i] = quoteIdent(col) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
}

func insertSQL(name string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(quoted, ", "), placeholders)
}

// columnValue maps a record field to its database value; empty text is NULL
func columnValue(rec domain.SalesRecord, column string, extra map[string]int) interface{} {
	switch column {
	case domain.ColumnDate:
		return rec.Date.Format(DateLayout)
	case domain.ColumnProduct:
		return nullString(rec.Product)
	case domain.ColumnCategory:
		return nullString(rec.Category)
	case domain.ColumnRegion:
		return nullString(rec.Region)
	case domain.ColumnRevenue:
		return rec.Revenue
	case domain.ColumnMonth:
		return nullString(rec.Month)
	case domain.ColumnMonthNum:
		return int64(rec.MonthNum)
	case domain.ColumnQuarter:
		return int64(rec.Quarter)
	case domain.ColumnYear:
		return int64(rec.Year)
	}
	if i, ok := extra[column]; ok && i < len(rec.Extra) {
		return extraValue(rec.Extra[i])
	}
	return nil
}

// extraValue stores dates as DateLayout text and passes numbers through
func extraValue(v any) interface{} {
	switch v := v.(type) {
	case nil:
		return nil
	case time.Time:
		return v.Format(DateLayout)
	case string:
		return nullString(v)
	default:
		return v
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
