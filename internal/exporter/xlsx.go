package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	perrors "salespipeline/internal/errors"
	"salespipeline/internal/infrastructure"
	"salespipeline/internal/validation"
	"salespipeline/pkg/contracts/domain"
)

// Mode of newly exported workbooks
const outputFileMode os.FileMode = 0644

// XLSXWriter provides workbook export functionality
type XLSXWriter struct {
	sheet      string
	dateFormat string
	validator  *validation.FileValidator
	logger     *slog.Logger
}

// XLSXOption configures an XLSXWriter
type XLSXOption func(*XLSXWriter)

// WithSheetName sets the name of the exported sheet
func WithSheetName(name string) XLSXOption {
	return func(w *XLSXWriter) {
		w.sheet = name
	}
}

// WithDateFormat sets the number format applied to Date cells
func WithDateFormat(format string) XLSXOption {
	return func(w *XLSXWriter) {
		w.dateFormat = format
	}
}

// NewXLSXWriter creates a new workbook writer
func NewXLSXWriter(logger *slog.Logger, opts ...XLSXOption) *XLSXWriter {
	logger = infrastructure.WithComponent(logger, "exporter")
	w := &XLSXWriter{
		sheet:      "Sheet1",
		dateFormat: "yyyy-mm-dd hh:mm:ss",
		validator:  validation.NewFileValidator(logger),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteSales writes the header and every record of table to path,
// replacing any existing file.
func (w *XLSXWriter) WriteSales(ctx context.Context, path string, table *domain.SalesTable) error {
	if err := w.validator.ValidateOutputFile(path); err != nil {
		return perrors.NewExportError(path, err)
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, filepath.Ext(base))+"-*.xlsx")
	if err != nil {
		return perrors.NewExportError(path, fmt.Errorf("failed to create temporary file: %w", err))
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := w.writeWorkbook(tmpPath, table); err != nil {
		os.Remove(tmpPath)
		return perrors.NewExportError(path, err)
	}
	// CreateTemp makes the file owner-only; keep the mode of the file being replaced
	mode := outputFileMode
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return perrors.NewExportError(path, fmt.Errorf("failed to set file mode: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return perrors.NewExportError(path, fmt.Errorf("failed to replace file: %w", err))
	}

	w.logger.InfoContext(ctx, "Workbook exported",
		slog.String("file_path", path),
		slog.Int("record_count", table.Len()),
		slog.Int("column_count", len(table.Columns)))
	return nil
}

func (w *XLSXWriter) writeWorkbook(path string, table *domain.SalesTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if name := f.GetSheetName(0); name != w.sheet {
		if err := f.SetSheetName(name, w.sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &w.dateFormat})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	extra := make(map[string]int, len(table.ExtraColumns))
	for i, col := range table.ExtraColumns {
		extra[col] = i
	}

	for i, rec := range table.Records {
		row := make([]interface{}, len(table.Columns))
		for j, col := range table.Columns {
			row[j] = cellValue(rec, col, extra, dateStyle)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// cellValue maps a record field to a stream cell; nil leaves the cell blank
func cellValue(rec domain.SalesRecord, column string, extra map[string]int, dateStyle int) interface{} {
	switch column {
	case domain.ColumnDate:
		return excelize.Cell{StyleID: dateStyle, Value: rec.Date}
	case domain.ColumnProduct:
		return textCell(rec.Product)
	case domain.ColumnCategory:
		return textCell(rec.Category)
	case domain.ColumnRegion:
		return textCell(rec.Region)
	case domain.ColumnRevenue:
		if !rec.Revenue.Valid {
			return nil
		}
		return rec.Revenue.Float64
	case domain.ColumnMonth:
		return textCell(rec.Month)
	case domain.ColumnMonthNum:
		return rec.MonthNum
	case domain.ColumnQuarter:
		return rec.Quarter
	case domain.ColumnYear:
		return rec.Year
	}
	if i, ok := extra[column]; ok && i < len(rec.Extra) {
		switch v := rec.Extra[i].(type) {
		case time.Time:
			return excelize.Cell{StyleID: dateStyle, Value: v}
		case string:
			return textCell(v)
		default:
			return v
		}
	}
	return nil
}

func textCell(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
