// Package report prints the human-readable pipeline report to the console.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"salespipeline/internal/exporter"
	"salespipeline/internal/storage"
	"salespipeline/pkg/contracts/domain"
)

const ruleWidth = 50

// Console writes report sections to an output stream
type Console struct {
	w    io.Writer
	bold bool
}

// NewConsole creates a console report on w.
// Banners are bold when w is a terminal.
func NewConsole(w io.Writer) *Console {
	bold := false
	if f, ok := w.(*os.File); ok {
		bold = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Console{w: w, bold: bold}
}

// Phase prints a phase banner; phase 0 prints a banner without a number
func (c *Console) Phase(phase int, title string) {
	if phase > 0 {
		title = fmt.Sprintf("PHASE %d: %s", phase, title)
	}
	if c.bold {
		title = "\033[1m" + title + "\033[0m"
	}
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(c.w, "\n%s\n%s\n%s\n", rule, title, rule)
}

// Success prints a completed-step line
func (c *Console) Success(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "✅ "+format+"\n", args...)
}

// Failure prints an error line
func (c *Console) Failure(err error) {
	fmt.Fprintf(c.w, "❌ Error: %v\n", err)
}

// Info prints a plain progress line
func (c *Console) Info(format string, args ...interface{}) {
	fmt.Fprintf(c.w, format+"\n", args...)
}

// Section prints a sub-heading
func (c *Console) Section(title string) {
	fmt.Fprintf(c.w, "\n%s:\n", title)
}

// RawTable prints the first rows, shape, column names, kinds and null counts
// of a freshly loaded table.
func (c *Console) RawTable(raw *domain.RawTable, previewRows int) {
	c.Section(fmt.Sprintf("First %d rows", previewRows))
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\t"+strings.Join(raw.ColumnNames(), "\t"))
	for i, row := range raw.Rows {
		if i >= previewRows {
			break
		}
		cells := make([]string, len(row))
		for j, value := range row {
			cells[j] = value
			if j < len(raw.Columns) && raw.Columns[j].Kind == domain.ColumnKindDatetime {
				cells[j] = formatSerial(value, raw.Date1904)
			}
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(cells, "\t"))
	}
	tw.Flush()

	rows, cols := raw.Shape()
	c.Section("Shape (rows, columns)")
	fmt.Fprintf(c.w, "(%d, %d)\n", rows, cols)

	c.Section("Column names")
	fmt.Fprintf(c.w, "[%s]\n", strings.Join(lo.Map(raw.ColumnNames(), func(name string, _ int) string {
		return fmt.Sprintf("%q", name)
	}), ", "))

	c.Section("Data types")
	c.columnTable(raw.Columns, func(info domain.ColumnInfo) string { return string(info.Kind) })

	c.NullCounts("Missing values", raw.Columns)
}

// formatSerial renders an Excel date serial as a date, adding the time of
// day only when it is not midnight. Other values are returned unchanged.
func formatSerial(value string, date1904 bool) string {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial < 0 {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return value
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// NullCounts prints the null count of each column
func (c *Console) NullCounts(title string, columns []domain.ColumnInfo) {
	c.Section(title)
	c.columnTable(columns, func(info domain.ColumnInfo) string { return fmt.Sprint(info.NullCount) })
}

func (c *Console) columnTable(columns []domain.ColumnInfo, value func(domain.ColumnInfo) string) {
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
	for _, info := range columns {
		fmt.Fprintf(tw, "%s\t%s\n", info.Name, value(info))
	}
	tw.Flush()
}

// RevenueStats prints the descriptive statistics of the Revenue column
func (c *Console) RevenueStats(stats domain.RevenueStats) {
	c.Section("Revenue statistics")
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	lines := []struct {
		name  string
		value float64
	}{
		{"count", float64(stats.Count)},
		{"mean", stats.Mean},
		{"std", stats.Std},
		{"min", stats.Min},
		{"25%", stats.Q25},
		{"50%", stats.Median},
		{"75%", stats.Q75},
		{"max", stats.Max},
	}
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%.6f\t\n", l.name, l.value)
	}
	tw.Flush()
}

// Verification prints the stored row count, sample rows and column names
func (c *Console) Verification(v *storage.Verification) {
	if v.Matches() {
		c.Success("Verified: %s rows stored in database", exporter.FormatCount(v.Count))
	} else {
		fmt.Fprintf(c.w, "⚠️  Stored %s rows, expected %s\n",
			exporter.FormatCount(v.Count), exporter.FormatCount(v.Expected))
	}

	c.Section("Sample data from database")
	for _, row := range v.Sample {
		fmt.Fprintf(c.w, "(%s)\n", strings.Join(row, ", "))
	}

	c.Section("Database columns")
	fmt.Fprintf(c.w, "[%s]\n", strings.Join(v.Columns, ", "))
}

// Outcome is the final state of one pipeline step
type Outcome struct {
	Label  string
	Status string
	Err    error
}

// Failed reports whether the step ended in failure
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Summary prints the closing report: table shape, date range, revenue totals,
// distinct counts and the outcome of every step.
func (c *Console) Summary(table *domain.SalesTable, stats domain.RevenueStats, outcomes []Outcome) {
	c.Phase(0, "FINAL SUMMARY")

	c.Success("Dataset shape: (%d, %d)", table.Len(), len(table.Columns))
	if first, last, ok := table.DateRange(); ok {
		c.Success("Date range: %s to %s", first.Format("2006-01-02"), last.Format("2006-01-02"))
	}
	c.Success("Total revenue: %s", exporter.FormatCurrency(stats.Sum))
	c.Success("Average revenue per transaction: %s", exporter.FormatCurrency(stats.Mean))
	c.Success("Unique products: %d", table.UniqueCount(domain.ColumnProduct))
	c.Success("Unique categories: %d", table.UniqueCount(domain.ColumnCategory))
	c.Success("Unique regions: %d", table.UniqueCount(domain.ColumnRegion))

	c.Section("Steps")
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
	for _, o := range outcomes {
		if o.Failed() {
			fmt.Fprintf(tw, "%s\t%s\t%v\n", o.Label, o.Status, o.Err)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t\n", o.Label, o.Status)
		}
	}
	tw.Flush()

	failed := lo.CountBy(outcomes, Outcome.Failed)
	if failed == 0 {
		fmt.Fprintln(c.w, "\n🎉 Data pipeline completed successfully!")
	} else {
		fmt.Fprintf(c.w, "\n⚠️  Data pipeline completed with %d failed step(s)\n", failed)
	}
	fmt.Fprintln(c.w, "Pipeline finished.")
}
