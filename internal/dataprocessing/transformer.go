package dataprocessing

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	perrors "salespipeline/internal/errors"
	"salespipeline/internal/infrastructure"
	"salespipeline/pkg/contracts/domain"
)

// Accepted textual date layouts, tried in order
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Excel serials above this fall past 9999-12-31
const maxExcelSerial = 2958465

// Fixed English month abbreviations, independent of process locale
var monthAbbrev = [...]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Transformer cleans a RawTable into a typed, sorted SalesTable
type Transformer struct {
	logger *slog.Logger
}

// NewTransformer creates a new transformer
func NewTransformer(logger *slog.Logger) *Transformer {
	return &Transformer{
		logger: infrastructure.WithComponent(logger, "transformer"),
	}
}

// Transform applies the cleaning rules in fixed order: required-column check,
// date parsing, calendar derivation, text normalization, stable date sort and
// revenue typing. Any failure aborts the whole transformation.
func (t *Transformer) Transform(ctx context.Context, raw *domain.RawTable) (*domain.SalesTable, error) {
	if raw == nil {
		return nil, perrors.NewTransformError("input", "no table to transform", nil)
	}

	idx, err := requireColumns(raw)
	if err != nil {
		return nil, err
	}

	table := &domain.SalesTable{
		Records: make([]domain.SalesRecord, len(raw.Rows)),
	}
	table.Columns = append(raw.ColumnNames(), domain.DerivedColumns...)
	table.ExtraColumns = lo.Without(raw.ColumnNames(), domain.RequiredColumns...)
	extraIdx := lo.Map(table.ExtraColumns, func(name string, _ int) int {
		return raw.ColumnIndex(name)
	})
	table.ExtraKinds = lo.Map(extraIdx, func(col int, _ int) domain.ColumnKind {
		return raw.Columns[col].Kind
	})

	// Date
	for i, row := range raw.Rows {
		value := row[idx[domain.ColumnDate]]
		date, err := ParseDate(value, raw.Date1904)
		if err != nil {
			return nil, perrors.NewTransformError("date conversion",
				fmt.Sprintf("row %d: cannot convert %q to a date", raw.RowNumbers[i], value), err)
		}
		table.Records[i].Date = date
	}
	t.logger.DebugContext(ctx, "Dates parsed", slog.Int("rows", len(raw.Rows)))

	// Calendar fields
	for i := range table.Records {
		DeriveCalendar(&table.Records[i])
	}

	// Text columns
	for i, row := range raw.Rows {
		rec := &table.Records[i]
		rec.Product = NormalizeText(row[idx[domain.ColumnProduct]])
		rec.Category = NormalizeText(row[idx[domain.ColumnCategory]])
		rec.Region = NormalizeText(row[idx[domain.ColumnRegion]])
		if len(extraIdx) > 0 {
			rec.Extra = make([]any, len(extraIdx))
			for j, col := range extraIdx {
				rec.Extra[j] = ExtraValue(row[col], table.ExtraKinds[j], raw.Date1904)
			}
		}
	}

	// Revenue is typed before sorting so error rows keep their spreadsheet numbers
	for i, row := range raw.Rows {
		value := row[idx[domain.ColumnRevenue]]
		revenue, err := parseRevenue(value)
		if err != nil {
			return nil, perrors.NewTransformError("revenue conversion",
				fmt.Sprintf("row %d: cannot convert %q to a number", raw.RowNumbers[i], value), err)
		}
		table.Records[i].Revenue = revenue
	}

	sort.SliceStable(table.Records, func(i, j int) bool {
		return table.Records[i].Date.Before(table.Records[j].Date)
	})

	t.logger.InfoContext(ctx, "Transformation completed",
		slog.Int("records", table.Len()),
		slog.Int("columns", len(table.Columns)))

	return table, nil
}

// requireColumns maps each required column to its position, failing with
// every missing name at once.
func requireColumns(raw *domain.RawTable) (map[string]int, error) {
	missing := lo.Without(domain.RequiredColumns, raw.ColumnNames()...)
	if len(missing) > 0 {
		return nil, perrors.NewTransformError("column check",
			fmt.Sprintf("missing required column(s): %s", strings.Join(missing, ", ")), nil)
	}
	return lo.SliceToMap(domain.RequiredColumns, func(name string) (string, int) {
		return name, raw.ColumnIndex(name)
	}), nil
}

// ParseDate converts a raw cell value into a calendar date at midnight UTC.
// Numbers are Excel serial dates; text must match one of the accepted layouts.
func ParseDate(value string, date1904 bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serial, ok := parseNumber(value); ok {
		if serial < 0 || serial > maxExcelSerial {
			return time.Time{}, fmt.Errorf("serial %v out of range", serial)
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return time.Time{}, err
		}
		return truncateToDate(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return truncateToDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DeriveCalendar fills Month, MonthNum, Quarter and Year from Date
func DeriveCalendar(rec *domain.SalesRecord) {
	m := int(rec.Date.Month())
	rec.MonthNum = m
	rec.Month = monthAbbrev[m-1]
	rec.Quarter = (m + 2) / 3
	rec.Year = rec.Date.Year()
}

// NormalizeText trims surrounding whitespace and title-cases each word.
// Applying it twice gives the same result as applying it once.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(s)
}

// ExtraValue types a pass-through cell by its column kind: nil when blank,
// int64 or float64 for numeric columns, time.Time for date-formatted columns
// and the raw text otherwise. A cell that does not fit its kind stays text.
func ExtraValue(value string, kind domain.ColumnKind, date1904 bool) any {
	if value == "" {
		return nil
	}
	switch kind {
	case domain.ColumnKindInt:
		if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return n
		}
	case domain.ColumnKindFloat:
		if n, ok := parseNumber(value); ok {
			return n
		}
	case domain.ColumnKindDatetime:
		if serial, ok := parseNumber(value); ok && serial >= 0 && serial <= maxExcelSerial {
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				return t.UTC()
			}
		}
	}
	return value
}

func parseRevenue(value string) (sql.NullFloat64, error) {
	if strings.TrimSpace(value) == "" {
		return sql.NullFloat64{}, nil
	}
	n, ok := parseNumber(value)
	if !ok {
		return sql.NullFloat64{}, fmt.Errorf("not a finite number")
	}
	return sql.NullFloat64{Float64: n, Valid: true}, nil
}
