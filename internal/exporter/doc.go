// Package exporter renders dashboard tables as CSV.
//
// Table is the common shape: a header row plus string rows. The builders in
// tables.go turn each dashboard section (buy and sell rankings, monthly
// price series, forecasts, vessel arrivals, import volume) into a Table, and
// CSVWriter writes it to any io.Writer or to a file. Files and HTTP
// downloads carry a UTF-8 BOM so spreadsheet tools detect the encoding.
//
// Example usage:
//
//	table := exporter.BuyTable(state.BuyOptions)
//	err := exporter.NewCSVWriter().WriteFile("reports/buy.csv", table)
package exporter
