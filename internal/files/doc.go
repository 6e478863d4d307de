// Package files locates ledger workbooks on disk.
//
// When the configured ledger path names a directory, the pipeline asks
// Discovery for the most recently modified .xlsx or .csv file in it, so a
// new monthly export can be dropped next to the old one.
package files
