package dataprocessing

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "rcnpulse/internal/errors"
)

var ledgerHeader = []interface{}{
	"DATE", "PORT CODE", "GOODS DESCRIPTION", "QUANTITY", "UNIT PRICE_USD",
	"TOTAL VALUE_USD", "IMPORTER", "COUNTRY OF_ORIGIN",
}

// writeLedger saves a workbook with five metadata rows, the header on row
// six and data rows after it
func writeLedger(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i := 1; i <= 5; i++ {
		require.NoError(t, f.SetCellValue(sheet, "A"+itoa(i), "export data metadata"))
	}
	require.NoError(t, f.SetSheetRow(sheet, "A6", &ledgerHeader))
	for i, row := range rows {
		r := row
		require.NoError(t, f.SetSheetRow(sheet, "A"+itoa(7+i), &r))
	}

	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func itoa(i int) string { return strconv.Itoa(i) }

func TestLoadLedgerFiltersPort(t *testing.T) {
	jan := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	path := writeLedger(t, [][]interface{}{
		{jan, "INTUT1", "RCN RBS 47 LBS", 25000, 1250.5, 31262500, "ALPHA CASHEW", "GHANA"},
		{jan, "INTUT1", "RCN NC 48 LBS", 18000, 1190, 21420000, "BETA EXPORTS", "BENIN"},
		{jan, "XXXX1", "RCN RBS 47 LBS", 10000, 1300, 13000000, "GAMMA", "GHANA"},
	})

	records, err := LoadLedger(path, DefaultLedgerOptions())
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, r := range records {
		assert.Equal(t, "INTUT1", r.PortCode)
	}

	first := records[0]
	require.NotNil(t, first.Date)
	assert.Equal(t, jan, *first.Date)
	assert.Equal(t, "RCN RBS 47 LBS", first.GoodsDescription)
	require.NotNil(t, first.Quantity)
	assert.InDelta(t, 25000, *first.Quantity, 1e-9)
	require.NotNil(t, first.UnitPrice)
	assert.InDelta(t, 1250.5, *first.UnitPrice, 1e-9)
	assert.Equal(t, "ALPHA CASHEW", first.Importer)
	assert.Equal(t, "GHANA", first.OriginCountry)
}

func TestLoadLedgerCoercion(t *testing.T) {
	path := writeLedger(t, [][]interface{}{
		{"2021-03-04", "INTUT1", "RCN RBS", "12,500", "1,100.25", "n/a", "DELTA", "TANZANIA"},
		{"not a date", "INTUT1", "RCN NC", "lots", 980, 9800, "EPSILON", "GUINEA"},
		{nil, "INTUT1", nil, nil, nil, nil, nil, nil},
	})

	records, err := LoadLedger(path, DefaultLedgerOptions())
	require.NoError(t, err)
	require.Len(t, records, 2, "row with only a port code is dropped")

	r := records[0]
	require.NotNil(t, r.Date)
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), *r.Date)
	require.NotNil(t, r.Quantity)
	assert.InDelta(t, 12500, *r.Quantity, 1e-9)
	require.NotNil(t, r.UnitPrice)
	assert.InDelta(t, 1100.25, *r.UnitPrice, 1e-9)
	assert.Nil(t, r.TotalValue)

	bad := records[1]
	assert.Nil(t, bad.Date, "unparseable date becomes missing, row kept")
	assert.Nil(t, bad.Quantity)
	require.NotNil(t, bad.UnitPrice)
	assert.InDelta(t, 980, *bad.UnitPrice, 1e-9)
}

func TestLoadLedgerMissingIsFatal(t *testing.T) {
	_, err := LoadLedger(filepath.Join(t.TempDir(), "absent.xlsx"), DefaultLedgerOptions())
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, errors.Is(err, ErrLedgerNotFound))
}

func TestLoadLedgerCSV(t *testing.T) {
	content := strings.Join([]string{
		"\ufeffIndia import data",
		"Period: JAN 2020 - DEC 2024",
		"HS 080131",
		"n/a",
		"source: customs",
		"date,port code,goods description,quantity,unit price_usd,total value_usd,importer,country of_origin",
		`15/01/2020,INTUT1,RCN RBS,"1,000",1200,1200000,ALPHA,GHANA`,
		`16/01/2020,INMAA1,RCN RBS,500,1300,650000,BETA,BENIN`,
	}, "\n")
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := LoadLedger(path, DefaultLedgerOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Date)
	assert.Equal(t, time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC), *records[0].Date)
	assert.InDelta(t, 1000, *records[0].Quantity, 1e-9)
}

func TestLoadLedgerLayoutErrors(t *testing.T) {
	t.Run("no port code column", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.csv")
		content := "a\nb\nc\nd\ne\nDATE,QUANTITY\n2020-01-01,10\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := LoadLedger(path, DefaultLedgerOptions())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
		assert.False(t, apperrors.IsFatal(err))
	})

	t.Run("too few rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.csv")
		require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))

		_, err := LoadLedger(path, DefaultLedgerOptions())
		assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
	})

	t.Run("not a workbook", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.xlsx")
		require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

		_, err := LoadLedger(path, DefaultLedgerOptions())
		assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
	})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"43845", time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2024", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-15T10:00:00Z", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), true},
		{"2024-01-15T15:30:00+05:30", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), true},
		{"1/15/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"3/4/2024", time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), true},
		{"150000", time.Time{}, false},
		{"2024-12-31", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"31-12-2024", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"05-Feb-2023", time.Date(2023, 2, 5, 0, 0, 0, 0, time.UTC), true},
		{"2023-02-05 10:30:00", time.Date(2023, 2, 5, 10, 30, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"-3", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseDate(tt.in, false)
			if !tt.ok {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestParseDateWorkbookSerials(t *testing.T) {
	got := parseDate("2024", true)
	require.NotNil(t, got)
	assert.Equal(t, 1905, got.Year(), "raw workbook numbers are serials")

	assert.Nil(t, parseDate("0", true))
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "UNIT PRICE USD", normalizeHeader(" unit  price_USD "))
	assert.Equal(t, "COUNTRY OF ORIGIN", normalizeHeader("COUNTRY OF_ORIGIN"))
}
