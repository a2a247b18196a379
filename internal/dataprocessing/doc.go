// Package dataprocessing turns a sales workbook into a clean, typed table.
//
// # Architecture
//
// The package has three parts:
//
// 1. Loader: reads the first sheet of an .xlsx file into a RawTable and infers column kinds
// 2. Transformer: parses dates, derives calendar fields, normalizes text and types revenue
// 3. Statistics: describes revenue and profiles null counts of the cleaned table
//
// # Usage
//
//	raw, err := dataprocessing.NewLoader(logger).LoadWorkbook(ctx, "Sales_Data_Pipeline.xlsx")
//	if err != nil {
//	    return err
//	}
//	table, err := dataprocessing.NewTransformer(logger).Transform(ctx, raw)
//	if err != nil {
//	    return err
//	}
//	stats, err := dataprocessing.DescribeRevenue(table)
//
// # Data Flow
//
//	Excel File → Loader → RawTable → Transformer → SalesTable → Statistics
//
// # Error Handling
//
// Loader failures are MissingFileError or LoadError, transformer and statistics
// failures are TransformError. Messages name the spreadsheet row and the
// offending value where one exists.
package dataprocessing
