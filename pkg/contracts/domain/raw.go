package domain

// ColumnKind is the inferred storage kind of a workbook column
type ColumnKind string

const (
	ColumnKindInt      ColumnKind = "int64"
	ColumnKindFloat    ColumnKind = "float64"
	ColumnKindDatetime ColumnKind = "datetime"
	ColumnKindObject   ColumnKind = "object"
)

// ColumnInfo describes one column of a loaded workbook
type ColumnInfo struct {
	Name      string     `json:"name"`
	Kind      ColumnKind `json:"kind"`
	NullCount int        `json:"null_count"`
}

// RawTable is a workbook sheet as loaded, before any typing or cleaning.
// Cells hold raw values: numbers (including date serials) are unformatted.
type RawTable struct {
	Source  string       `json:"source"`
	Sheet   string       `json:"sheet"`
	Columns []ColumnInfo `json:"columns"`
	Rows    [][]string   `json:"rows"`
	// RowNumbers maps each entry of Rows to its 1-based spreadsheet row
	RowNumbers []int `json:"row_numbers"`
	// Date1904 reports whether the workbook uses the 1904 date system
	Date1904 bool `json:"date_1904"`
}

// ColumnNames returns the header names in order
func (t *RawTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of a named column, or -1
func (t *RawTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Shape returns the row and column counts
func (t *RawTable) Shape() (int, int) {
	return len(t.Rows), len(t.Columns)
}
