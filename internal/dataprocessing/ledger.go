package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"rcnpulse/internal/config"
	apperrors "rcnpulse/internal/errors"
	"rcnpulse/internal/infrastructure"
	"rcnpulse/internal/validation"
	"rcnpulse/pkg/contracts/domain"
)

// ErrLedgerNotFound is wrapped by the fatal error LoadLedger returns when
// the ledger file does not exist
var ErrLedgerNotFound = errors.New("ledger not found")

// Ledger column headers, in normalized form
const (
	colDate     = "DATE"
	colPort     = "PORT CODE"
	colQuantity = "QUANTITY"
	colUnit     = "UNIT PRICE USD"
	colTotal    = "TOTAL VALUE USD"
	colGoods    = "GOODS DESCRIPTION"
	colImporter = "IMPORTER"
	colOrigin   = "COUNTRY OF ORIGIN"
)

// dateLayouts are tried in order for text date cells
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-01-2006",
	"02/01/2006",
	"2/1/2006",
	"1/2/2006",
	"02-Jan-2006",
	"02-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2006",
}

// Text cells holding a bare number are read as Excel serials only within
// this range (1990-01-01 to 2100-01-01); workbook cells are always serials.
const (
	minTextSerial = 32874
	maxTextSerial = 73051
)

// LedgerOptions controls how the ledger is read
type LedgerOptions struct {
	// HeaderRows is the number of metadata rows above the column header
	HeaderRows int
	// PortCode is the only port retained
	PortCode string
	// Sheet names the worksheet; empty uses the first sheet
	Sheet  string
	Logger *slog.Logger
}

// DefaultLedgerOptions returns the layout of the Tuticorin import ledger
func DefaultLedgerOptions() LedgerOptions {
	return LedgerOptions{
		HeaderRows: config.LedgerHeaderRows,
		PortCode:   config.DestinationPortCode,
	}
}

// LedgerOptionsFrom maps configuration to loader options
func LedgerOptionsFrom(cfg config.LedgerConfig) LedgerOptions {
	return LedgerOptions{
		HeaderRows: cfg.HeaderRows,
		PortCode:   cfg.PortCode,
		Sheet:      cfg.Sheet,
	}
}

// LoadLedger reads the shipment ledger at path. Files ending in .csv are
// read as CSV, anything else as an xlsx workbook.
func LoadLedger(path string, opts LedgerOptions) ([]domain.ShipmentRecord, error) {
	logger := infrastructure.WithComponent(opts.Logger, "ledger")

	if err := validation.NewFileValidator(logger).ValidateLedgerFile(path); err != nil {
		if errors.Is(err, validation.ErrFileNotFound) {
			return nil, apperrors.NewFatalError("ledger file is required",
				fmt.Errorf("%w: %s", ErrLedgerNotFound, path)).
				WithContext("path", path)
		}
		return nil, apperrors.NewFatalError("ledger file is not usable", err).
			WithContext("path", path)
	}

	var (
		rows [][]string
		err  error
	)
	workbook := !strings.EqualFold(filepath.Ext(path), ".csv")
	if !workbook {
		rows, err = readCSVRows(path)
	} else {
		rows, err = readSheetRows(path, opts.Sheet)
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read ledger", err).WithContext("path", path)
	}

	records, err := parseLedgerRows(rows, opts, workbook)
	if err != nil {
		return nil, apperrors.NewParsingError("invalid ledger layout", err).WithContext("path", path)
	}

	logger.Info("ledger loaded",
		slog.String("path", path),
		slog.Int("raw_rows", max(len(rows)-opts.HeaderRows-1, 0)),
		slog.Int("retained_rows", len(records)),
		slog.String("port_code", opts.PortCode))

	return records, nil
}

func readSheetRows(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	// Raw values keep date cells as serial numbers instead of locale text
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		rows = append(rows, row)
	}
	// Spreadsheet exports often start with a UTF-8 BOM
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// parseLedgerRows skips the metadata rows, maps the header and coerces
// every retained row. workbook marks raw xlsx values, where a number in the
// date column is always a serial.
func parseLedgerRows(rows [][]string, opts LedgerOptions, workbook bool) ([]domain.ShipmentRecord, error) {
	if len(rows) <= opts.HeaderRows {
		return nil, fmt.Errorf("expected a header row after %d metadata rows, file has %d rows",
			opts.HeaderRows, len(rows))
	}

	columns := make(map[string]int)
	for i, name := range rows[opts.HeaderRows] {
		key := normalizeHeader(name)
		if _, dup := columns[key]; !dup && key != "" {
			columns[key] = i
		}
	}
	if _, ok := columns[colPort]; !ok {
		return nil, fmt.Errorf("column %q not found in header row", colPort)
	}

	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]domain.ShipmentRecord, 0, len(rows)-opts.HeaderRows-1)
	for _, row := range rows[opts.HeaderRows+1:] {
		port := cell(row, colPort)
		if port != opts.PortCode {
			continue
		}

		rec := domain.ShipmentRecord{
			Date:             parseDate(cell(row, colDate), workbook),
			PortCode:         port,
			GoodsDescription: cell(row, colGoods),
			Quantity:         parseNumber(cell(row, colQuantity)),
			UnitPrice:        parseNumber(cell(row, colUnit)),
			TotalValue:       parseNumber(cell(row, colTotal)),
			Importer:         cell(row, colImporter),
			OriginCountry:    cell(row, colOrigin),
		}
		if isEmptyShipment(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// normalizeHeader upper-cases a header and folds underscores and runs of
// whitespace into single spaces
func normalizeHeader(s string) string {
	s = strings.ToUpper(strings.ReplaceAll(s, "_", " "))
	return strings.Join(strings.Fields(s), " ")
}

// isEmptyShipment reports whether every field besides the port code is missing
func isEmptyShipment(r domain.ShipmentRecord) bool {
	return r.Date == nil && r.Quantity == nil && r.UnitPrice == nil && r.TotalValue == nil &&
		r.GoodsDescription == "" && r.Importer == "" && r.OriginCountry == ""
}

// parseNumber strips thousands separators; anything non-numeric is nil
func parseNumber(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return domain.Float(v)
}

// parseDate accepts Excel serial dates and the common text layouts. With
// anySerial false a number outside the plausible serial range falls through
// to the text layouts, so "2024" is a year rather than a 1905 serial.
func parseDate(s string, anySerial bool) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil &&
		(anySerial || (serial >= minTextSerial && serial < maxTextSerial)) {
		if serial <= 0 {
			return nil
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		return domain.Time(t.UTC())
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Time(t.UTC())
		}
	}
	return nil
}
