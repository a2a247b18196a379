package domain

import (
	"database/sql"
	"time"
)

// Column names of the sales schema
const (
	ColumnDate     = "Date"
	ColumnProduct  = "Product"
	ColumnCategory = "Category"
	ColumnRegion   = "Region"
	ColumnRevenue  = "Revenue"

	ColumnMonth    = "Month"
	ColumnMonthNum = "Month_Num"
	ColumnQuarter  = "Quarter"
	ColumnYear     = "Year"
)

// RequiredColumns lists the input columns every sales workbook must carry
var RequiredColumns = []string{
	ColumnDate,
	ColumnProduct,
	ColumnCategory,
	ColumnRegion,
	ColumnRevenue,
}

// DerivedColumns lists the calendar columns computed from Date, in output order
var DerivedColumns = []string{
	ColumnMonth,
	ColumnMonthNum,
	ColumnQuarter,
	ColumnYear,
}

// SalesRecord represents one cleaned row of sales data
type SalesRecord struct {
	Date     time.Time       `json:"date" db:"Date"`
	Product  string          `json:"product" db:"Product"`
	Category string          `json:"category" db:"Category"`
	Region   string          `json:"region" db:"Region"`
	Revenue  sql.NullFloat64 `json:"revenue" db:"Revenue"`

	// Derived from Date
	Month    string `json:"month" db:"Month"`
	MonthNum int    `json:"month_num" db:"Month_Num"`
	Quarter  int    `json:"quarter" db:"Quarter"`
	Year     int    `json:"year" db:"Year"`

	// Extra holds pass-through column values, aligned with SalesTable.ExtraColumns.
	// Each entry is nil (blank), int64, float64, time.Time or string,
	// following the kind of its column.
	Extra []any `json:"extra,omitempty"`
}

// SalesTable is an ordered set of sales records sharing one column schema
type SalesTable struct {
	// Columns is the full output schema: input columns in input order, then DerivedColumns
	Columns []string `json:"columns"`
	// ExtraColumns names the input columns outside RequiredColumns
	ExtraColumns []string `json:"extra_columns,omitempty"`
	// ExtraKinds holds the inferred kind of each ExtraColumns entry
	ExtraKinds []ColumnKind   `json:"extra_kinds,omitempty"`
	Records    []SalesRecord `json:"records"`
}

// Len returns the number of records
func (t *SalesTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// DateRange returns the earliest and latest record dates.
// Records are sorted by date, so these are the first and last entries.
func (t *SalesTable) DateRange() (time.Time, time.Time, bool) {
	if t.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.Records[0].Date, t.Records[len(t.Records)-1].Date, true
}

// RevenueValues returns the non-null revenue amounts in record order
func (t *SalesTable) RevenueValues() []float64 {
	values := make([]float64, 0, t.Len())
	for _, r := range t.Records {
		if r.Revenue.Valid {
			values = append(values, r.Revenue.Float64)
		}
	}
	return values
}

// UniqueCount returns the number of distinct non-empty values of a text column
func (t *SalesTable) UniqueCount(column string) int {
	seen := make(map[string]struct{})
	for _, r := range t.Records {
		var v string
		switch column {
		case ColumnProduct:
			v = r.Product
		case ColumnCategory:
			v = r.Category
		case ColumnRegion:
			v = r.Region
		default:
			return 0
		}
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// RevenueStats holds the descriptive statistics of the Revenue column
type RevenueStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
	Sum    float64 `json:"sum"`
}
