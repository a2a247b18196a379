package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	perrors "salespipeline/internal/errors"
	"salespipeline/internal/infrastructure"
	"salespipeline/internal/validation"
	"salespipeline/pkg/contracts/domain"
)

// Loader reads a sales workbook into a RawTable
type Loader struct {
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewLoader creates a new workbook loader
func NewLoader(logger *slog.Logger) *Loader {
	logger = infrastructure.WithComponent(logger, "loader")
	return &Loader{
		validator: validation.NewFileValidator(logger),
		logger:    logger,
	}
}

// LoadWorkbook reads the first sheet of the workbook at path.
// The first non-blank row is the header; fully blank rows below it are skipped.
// A missing file yields a MissingFileError, anything unreadable a LoadError.
func (l *Loader) LoadWorkbook(ctx context.Context, path string) (*domain.RawTable, error) {
	if err := l.validator.ValidateExcelFile(path); err != nil {
		if validation.IsNotFound(err) {
			return nil, perrors.NewMissingFileError(path, err)
		}
		return nil, perrors.NewLoadError("invalid input file", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, perrors.NewLoadError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, perrors.NewLoadError("workbook has no sheets", nil)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, perrors.NewLoadError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}

	headerIdx := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, perrors.NewLoadError(fmt.Sprintf("sheet %q has no header row", sheet), nil)
	}

	names, err := headerNames(rows[headerIdx])
	if err != nil {
		return nil, perrors.NewLoadError(fmt.Sprintf("invalid header in row %d", headerIdx+1), err)
	}
	width := len(names)

	table := &domain.RawTable{
		Source: path,
		Sheet:  sheet,
	}

	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		if len(row) > width && !isBlankRow(row[width:]) {
			l.logger.WarnContext(ctx, "Ignoring cells outside the header range",
				slog.Int("row", i+1),
				slog.Int("header_width", width))
		}
		cells := make([]string, width)
		copy(cells, row)
		table.Rows = append(table.Rows, cells)
		table.RowNumbers = append(table.RowNumbers, i+1)
	}

	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		table.Date1904 = *props.Date1904
	}

	styles := newStyleInspector(f, sheet)
	table.Columns = make([]domain.ColumnInfo, width)
	for col, name := range names {
		table.Columns[col] = inferColumn(name, col, table, styles)
	}

	nRows, nCols := table.Shape()
	l.logger.InfoContext(ctx, "Workbook loaded",
		slog.String("file", path),
		slog.String("sheet", sheet),
		slog.Int("rows", nRows),
		slog.Int("columns", nCols))

	return table, nil
}

// headerNames returns the header cells trimmed of whitespace, with trailing
// blank cells dropped. Blank or repeated names are rejected.
func headerNames(row []string) ([]string, error) {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}

	names := make([]string, end)
	seen := make(map[string]int, end)
	for i := 0; i < end; i++ {
		name := strings.TrimSpace(row[i])
		if name == "" {
			return nil, fmt.Errorf("column %d has no name", i+1)
		}
		if first, dup := seen[name]; dup {
			return nil, fmt.Errorf("column %q appears in positions %d and %d", name, first+1, i+1)
		}
		seen[name] = i
		names[i] = name
	}
	return names, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// inferColumn determines a column's kind and null count from its raw cells
func inferColumn(name string, col int, table *domain.RawTable, styles *styleInspector) domain.ColumnInfo {
	info := domain.ColumnInfo{Name: name}

	numeric, integral, dated, nonNull := true, true, false, 0
	for i, row := range table.Rows {
		value := row[col]
		if value == "" {
			info.NullCount++
			continue
		}
		nonNull++

		n, ok := parseNumber(value)
		if !ok {
			numeric = false
			continue
		}
		if n != float64(int64(n)) || strings.ContainsAny(value, ".eE") {
			integral = false
		}
		if !dated && styles.isDate(col, table.RowNumbers[i]) {
			dated = true
		}
	}

	switch {
	case nonNull == 0 || !numeric:
		info.Kind = domain.ColumnKindObject
	case dated:
		info.Kind = domain.ColumnKindDatetime
	case integral:
		info.Kind = domain.ColumnKindInt
	default:
		info.Kind = domain.ColumnKindFloat
	}
	return info
}

// styleInspector answers whether a cell carries a date number format,
// caching the answer per style ID.
type styleInspector struct {
	file  *excelize.File
	sheet string
	byID  map[int]bool
}

func newStyleInspector(f *excelize.File, sheet string) *styleInspector {
	return &styleInspector{file: f, sheet: sheet, byID: make(map[int]bool)}
}

func (s *styleInspector) isDate(col, rowNumber int) bool {
	cell, err := excelize.CoordinatesToCellName(col+1, rowNumber)
	if err != nil {
		return false
	}
	styleID, err := s.file.GetCellStyle(s.sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}
	if dated, ok := s.byID[styleID]; ok {
		return dated
	}

	dated := false
	if style, err := s.file.GetStyle(styleID); err == nil {
		dated = isDateFormat(style)
	}
	s.byID[styleID] = dated
	return dated
}

// isDateFormat reports whether a cell style displays its number as a date
func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDatePattern(*style.CustomNumFmt)
	}
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 22,
		style.NumFmt >= 27 && style.NumFmt <= 36,
		style.NumFmt >= 45 && style.NumFmt <= 47,
		style.NumFmt >= 50 && style.NumFmt <= 58:
		return true
	}
	return false
}

// isDatePattern looks for day or year tokens outside quoted literals and brackets
func isDatePattern(pattern string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range pattern {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	tokens := strings.ToLower(b.String())
	return strings.ContainsAny(tokens, "dy")
}

// parseNumber parses a finite decimal number; NaN and Inf are rejected
func parseNumber(value string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
