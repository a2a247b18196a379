// Package testutil provides workbook fixtures and file assertions shared by
// the pipeline's tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"salespipeline/pkg/contracts/domain"
)

// SalesHeader is the column order of a standard sales workbook
var SalesHeader = []interface{}{"Date", "Product", "Category", "Region", "Revenue"}

// SampleRows returns a small, unsorted set of raw sales rows with dates
// written as real date cells.
func SampleRows() [][]interface{} {
	return [][]interface{}{
		{date(2023, 3, 15), "widget a", " tools", "north", 100.5},
		{date(2023, 1, 10), "GADGET", "electronics ", "south", 250.0},
		{date(2023, 7, 4), " gizmo b", "tools", "east", nil},
		{date(2023, 1, 10), "widget a", "tools", "west", 75.25},
	}
}

// WriteWorkbook saves header and rows to name under dir and returns the path.
// Nil values leave the cell empty.
func WriteWorkbook(t *testing.T, dir, name string, header []interface{}, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	all := append([][]interface{}{header}, rows...)
	for r, row := range all {
		for c, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("invalid cell coordinates: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("failed to set cell %s: %v", cell, err)
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}

// WriteSalesWorkbook writes SampleRows under the standard header
func WriteSalesWorkbook(t *testing.T, dir string) string {
	t.Helper()
	return WriteWorkbook(t, dir, "Sales_Data_Pipeline.xlsx", SalesHeader, SampleRows())
}

// SampleTable returns a cleaned table equivalent to transforming SampleRows
func SampleTable() *domain.SalesTable {
	columns := []string{
		domain.ColumnDate, domain.ColumnProduct, domain.ColumnCategory,
		domain.ColumnRegion, domain.ColumnRevenue,
	}
	return &domain.SalesTable{
		Columns: append(columns, domain.DerivedColumns...),
		Records: []domain.SalesRecord{
			record(date(2023, 1, 10), "Gadget", "Electronics", "South", 250.0, true),
			record(date(2023, 1, 10), "Widget A", "Tools", "West", 75.25, true),
			record(date(2023, 3, 15), "Widget A", "Tools", "North", 100.5, true),
			record(date(2023, 7, 4), "Gizmo B", "Tools", "East", 0, false),
		},
	}
}

func record(d time.Time, product, category, region string, revenue float64, valid bool) domain.SalesRecord {
	m := int(d.Month())
	return domain.SalesRecord{
		Date:     d,
		Product:  product,
		Category: category,
		Region:   region,
		Revenue:  sql.NullFloat64{Float64: revenue, Valid: valid},
		Month:    d.Format("Jan"),
		MonthNum: m,
		Quarter:  (m + 2) / 3,
		Year:     d.Year(),
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
