// Package dataprocessing loads the destination-port shipment ledger and
// turns ledger rows and trade statistics into comparable monthly series.
//
// # Architecture
//
// The package has two parts:
//
// 1. Ledger: reads the spreadsheet (or a CSV export of it), skips the
// leading metadata rows, keeps only the configured port and coerces
// dates and numbers. Cells that fail coercion become nil.
// 2. Aggregation: month bucketing, grouped means and sums, and the
// generic TopKByMetric used by the rankings.
//
// # Usage
//
//	records, err := dataprocessing.LoadLedger("RCN JAN 2020 TO DEC 2024.xlsx",
//	    dataprocessing.DefaultLedgerOptions())
//	if err != nil {
//	    // errors.IsFatal(err) when the file is missing
//	}
//	series := dataprocessing.MonthlyPriceSeries(records,
//	    dataprocessing.GradeFilter("RBS"), "RBS")
//
// # Data Flow
//
//	Ledger file → LoadLedger → ShipmentRecords → MonthlyPriceSeries → Forecast
//	                                           → TopKByMetric → Rankings
//
// # Error Handling
//
// A missing ledger is a fatal AppError wrapping ErrLedgerNotFound. An
// unreadable workbook or a header row without a port code column is a
// parsing error. Bad cells never fail a load.
package dataprocessing
