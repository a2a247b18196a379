// Package exporter writes cleaned sales tables to spreadsheet files and
// provides the number formatting shared by console and chart output.
//
// XLSXWriter streams a SalesTable into a single-sheet workbook. The workbook
// is saved next to the target under a temporary name and renamed over it,
// so a failed export never leaves a partial file behind.
//
// Example usage:
//
//	writer := exporter.NewXLSXWriter(logger)
//	err := writer.WriteSales(ctx, "Cleaned_Sales_Data.xlsx", table)
package exporter
