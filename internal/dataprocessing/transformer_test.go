package dataprocessing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "salespipeline/internal/errors"
	"salespipeline/internal/testutil"
	"salespipeline/pkg/contracts/domain"
)

func rawTable(columns []string, rows ...[]string) *domain.RawTable {
	raw := &domain.RawTable{Source: "test.xlsx", Sheet: "Sheet1"}
	for _, name := range columns {
		raw.Columns = append(raw.Columns, domain.ColumnInfo{Name: name})
	}
	for i, row := range rows {
		raw.Rows = append(raw.Rows, row)
		raw.RowNumbers = append(raw.RowNumbers, i+2)
	}
	return raw
}

var salesColumns = []string{"Date", "Product", "Category", "Region", "Revenue"}

func TestTransformSingleRecord(t *testing.T) {
	raw := rawTable(salesColumns,
		[]string{"2023-03-15", "widget a", " tools", "north", "100.5"})

	table, err := NewTransformer(nil).Transform(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	rec := table.Records[0]
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, "Widget A", rec.Product)
	assert.Equal(t, "Tools", rec.Category)
	assert.Equal(t, "North", rec.Region)
	assert.True(t, rec.Revenue.Valid)
	assert.Equal(t, 100.5, rec.Revenue.Float64)
	assert.Equal(t, "Mar", rec.Month)
	assert.Equal(t, 3, rec.MonthNum)
	assert.Equal(t, 1, rec.Quarter)
	assert.Equal(t, 2023, rec.Year)

	assert.Equal(t, []string{
		"Date", "Product", "Category", "Region", "Revenue",
		"Month", "Month_Num", "Quarter", "Year",
	}, table.Columns)
	assert.Empty(t, table.ExtraColumns)
}

func TestTransformWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteSalesWorkbook(t, dir)

	raw, err := NewLoader(nil).LoadWorkbook(context.Background(), path)
	require.NoError(t, err)

	table, err := NewTransformer(nil).Transform(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, testutil.SampleTable().Records, table.Records)
}

func TestTransformStableSort(t *testing.T) {
	raw := rawTable(salesColumns,
		[]string{"2023-05-01", "c", "x", "x", "1"},
		[]string{"2023-01-01", "first", "x", "x", "2"},
		[]string{"2023-01-01", "second", "x", "x", "3"},
		[]string{"2022-12-31", "a", "x", "x", "4"},
		[]string{"2023-01-01", "third", "x", "x", "5"},
	)

	table, err := NewTransformer(nil).Transform(context.Background(), raw)
	require.NoError(t, err)

	var products []string
	for i, rec := range table.Records {
		products = append(products, rec.Product)
		if i > 0 {
			assert.False(t, rec.Date.Before(table.Records[i-1].Date))
		}
	}
	assert.Equal(t, []string{"A", "First", "Second", "Third", "C"}, products)
	assert.Equal(t, 5, table.Len())
}

func TestTransformQuarters(t *testing.T) {
	want := map[int]int{1: 1, 2: 1, 3: 1, 4: 2, 5: 2, 6: 2, 7: 3, 8: 3, 9: 3, 10: 4, 11: 4, 12: 4}
	for month, quarter := range want {
		rec := domain.SalesRecord{Date: time.Date(2024, time.Month(month), 1, 0, 0, 0, 0, time.UTC)}
		DeriveCalendar(&rec)
		assert.Equal(t, quarter, rec.Quarter, "month %d", month)
		assert.Equal(t, month, rec.MonthNum)
		assert.Equal(t, time.Month(month).String()[:3], rec.Month)
		assert.Equal(t, 2024, rec.Year)
	}
}

func TestTransformErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     *domain.RawTable
		wantOp  string
		wantMsg string
	}{
		{
			name:    "missing date column",
			raw:     rawTable([]string{"Product", "Category", "Region", "Revenue"}, []string{"a", "b", "c", "1"}),
			wantOp:  "column check",
			wantMsg: "Date",
		},
		{
			name:    "missing several columns",
			raw:     rawTable([]string{"Date", "Product"}, []string{"2023-01-01", "a"}),
			wantOp:  "column check",
			wantMsg: "Category, Region, Revenue",
		},
		{
			name: "unparseable date",
			raw: rawTable(salesColumns,
				[]string{"2023-01-01", "a", "b", "c", "1"},
				[]string{"not-a-date", "a", "b", "c", "1"}),
			wantOp:  "date conversion",
			wantMsg: `row 3: cannot convert "not-a-date"`,
		},
		{
			name:    "empty date",
			raw:     rawTable(salesColumns, []string{"", "a", "b", "c", "1"}),
			wantOp:  "date conversion",
			wantMsg: "row 2",
		},
		{
			name:    "non-numeric revenue",
			raw:     rawTable(salesColumns, []string{"2023-01-01", "a", "b", "c", "lots"}),
			wantOp:  "revenue conversion",
			wantMsg: `"lots"`,
		},
		{
			name:    "NaN revenue",
			raw:     rawTable(salesColumns, []string{"2023-01-01", "a", "b", "c", "NaN"}),
			wantOp:  "revenue conversion",
			wantMsg: `"NaN"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewTransformer(nil).Transform(context.Background(), tt.raw)
			require.Error(t, err)
			assert.Nil(t, table)

			pe := mustPipelineError(t, err)
			assert.Equal(t, perrors.ErrorTypeTransform, pe.Type)
			assert.Equal(t, perrors.PhaseTransformation, pe.Phase)
			assert.Equal(t, tt.wantOp, pe.Operation)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, perrors.IsFatal(err))
		})
	}
}

func TestTransformBlankRevenueIsNull(t *testing.T) {
	raw := rawTable(salesColumns, []string{"2023-01-01", "a", "b", "c", "  "})
	table, err := NewTransformer(nil).Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, table.Records[0].Revenue.Valid)
}

func TestTransformKeepsExtraColumns(t *testing.T) {
	raw := rawTable([]string{"Date", "Notes", "Product", "Category", "Region", "Revenue"},
		[]string{"2023-01-01", "promo", "a", "b", "c", "1"})

	table, err := NewTransformer(nil).Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Notes"}, table.ExtraColumns)
	assert.Equal(t, []string{
		"Date", "Notes", "Product", "Category", "Region", "Revenue",
		"Month", "Month_Num", "Quarter", "Year",
	}, table.Columns)
	assert.Equal(t, []domain.ColumnKind{domain.ColumnKindObject}, table.ExtraKinds)
	assert.Equal(t, []any{"promo"}, table.Records[0].Extra)
}

func TestTransformTypesExtraColumns(t *testing.T) {
	dir := t.TempDir()
	header := append(append([]interface{}{}, testutil.SalesHeader...), "Units", "Discount", "ShipDate", "Notes")
	shipped := time.Date(2023, 3, 20, 0, 0, 0, 0, time.UTC)
	path := testutil.WriteWorkbook(t, dir, "extras.xlsx", header, [][]interface{}{
		{shipped, "a", "b", "c", 10.0, 5, 0.25, shipped, "promo"},
		{shipped, "a", "b", "c", 20.0, nil, 0.5, nil, nil},
	})

	raw, err := NewLoader(nil).LoadWorkbook(context.Background(), path)
	require.NoError(t, err)
	table, err := NewTransformer(nil).Transform(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"Units", "Discount", "ShipDate", "Notes"}, table.ExtraColumns)
	assert.Equal(t, []domain.ColumnKind{
		domain.ColumnKindInt,
		domain.ColumnKindFloat,
		domain.ColumnKindDatetime,
		domain.ColumnKindObject,
	}, table.ExtraKinds)
	assert.Equal(t, []any{int64(5), 0.25, shipped, "promo"}, table.Records[0].Extra)
	assert.Equal(t, []any{nil, 0.5, nil, nil}, table.Records[1].Extra)

	byName := map[string]domain.ColumnInfo{}
	for _, info := range ProfileTable(table) {
		byName[info.Name] = info
	}
	assert.Equal(t, domain.ColumnKindInt, byName["Units"].Kind)
	assert.Equal(t, 1, byName["Units"].NullCount)
	assert.Equal(t, domain.ColumnKindDatetime, byName["ShipDate"].Kind)
}

func TestExtraValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		kind     domain.ColumnKind
		date1904 bool
		want     any
	}{
		{"blank", "", domain.ColumnKindInt, false, nil},
		{"integer", "42", domain.ColumnKindInt, false, int64(42)},
		{"float", "2.5", domain.ColumnKindFloat, false, 2.5},
		{"date serial", "45005", domain.ColumnKindDatetime, false, time.Date(2023, 3, 20, 0, 0, 0, 0, time.UTC)},
		{"1904 date serial", "43543", domain.ColumnKindDatetime, true, time.Date(2023, 3, 20, 0, 0, 0, 0, time.UTC)},
		{"date with time", "45005.5", domain.ColumnKindDatetime, false, time.Date(2023, 3, 20, 12, 0, 0, 0, time.UTC)},
		{"text", "promo", domain.ColumnKindObject, false, "promo"},
		{"numeric text column", "7", domain.ColumnKindObject, false, "7"},
		{"unparseable integer", "x", domain.ColumnKindInt, false, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtraValue(tt.value, tt.kind, tt.date1904))
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	inputs := []string{
		"45000",
		"45000.75",
		"2023-03-15",
		"2023-03-15 13:45:00",
		"2023-03-15T13:45:00Z",
		"2023/03/15",
		"03/15/2023",
		"3/15/2023",
		"03-15-23",
		"15-Mar-2023",
		"Mar 15, 2023",
		"March 15, 2023",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDate(in, false)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	got, err := ParseDate("43538", true)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, bad := range []string{"", "not-a-date", "-1", "99999999", "15.03.2023"} {
		_, err := ParseDate(bad, false)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"widget a", "Widget A"},
		{"  tools", "Tools"},
		{"NORTH east", "North East"},
		{"electronics ", "Electronics"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeText(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeText(got))
		})
	}
}
