package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rcnpulse/internal/cache"
	"rcnpulse/internal/config"
	"rcnpulse/internal/dataprocessing"
	apperrors "rcnpulse/internal/errors"
	"rcnpulse/internal/shared/testutil"
	"rcnpulse/internal/sources"
	"rcnpulse/pkg/contracts/domain"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type mockTrade struct {
	mock.Mock
}

func (m *mockTrade) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *mockTrade) FetchTradePrice(ctx context.Context, iso string, year int) sources.Result[float64] {
	return m.Called(ctx, iso, year).Get(0).(sources.Result[float64])
}

func (m *mockTrade) FetchLatestPrice(ctx context.Context, iso string, year int) sources.Result[float64] {
	return m.Called(ctx, iso, year).Get(0).(sources.Result[float64])
}

type mockVessels struct {
	mock.Mock
}

func (m *mockVessels) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *mockVessels) FetchVesselArrivals(ctx context.Context, limit int) sources.Result[[]domain.VesselRecord] {
	return m.Called(ctx, limit).Get(0).(sources.Result[[]domain.VesselRecord])
}

// writeLedgerCSV writes 24 months of RBS rows (2023-2024) and three months
// of NC rows (Oct-Dec 2024), each row 10 t
func writeLedgerCSV(t *testing.T) string {
	t.Helper()
	lines := []string{"meta", "meta", "meta", "meta", "meta",
		"DATE,PORT CODE,GOODS DESCRIPTION,QUANTITY,UNIT PRICE_USD,TOTAL VALUE_USD,IMPORTER,COUNTRY OF_ORIGIN"}

	origins := []string{"GHANA", "TANZANIA", "BENIN"}
	for i := 0; i < 24; i++ {
		d := time.Date(2023, time.January, 10, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
		price := 1100 + 5*i
		lines = append(lines, fmt.Sprintf("%s,INTUT1,RAW CASHEW RBS 47 LBS,10000,%d,%d,IMPORTER %02d,%s",
			d.Format("2006-01-02"), price, price*10000, i%12, origins[i%3]))
	}
	for i := 0; i < 3; i++ {
		d := time.Date(2024, time.October, 5, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
		lines = append(lines, fmt.Sprintf("%s,INTUT1,RAW CASHEW NC 48 LBS,10000,1500,15000000,IMPORTER NC,GUINEA",
			d.Format("2006-01-02")))
	}
	lines = append(lines, "2024-11-01,INMAA1,RAW CASHEW RBS,99999,999,1,ELSEWHERE,GHANA")

	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))
	return path
}

type fixture struct {
	pipeline *PipelineContext
	trade    *mockTrade
	vessels  *mockVessels
	logs     *testutil.LogCapture
}

func newFixture(t *testing.T, vesselsEnabled bool) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Ledger.Path = writeLedgerCSV(t)

	trade := &mockTrade{}
	trade.On("Enabled").Return(true).Maybe()
	trade.On("FetchTradePrice", mock.Anything, "GH", 2024).Return(sources.AvailableResult(1300.0))
	trade.On("FetchTradePrice", mock.Anything, "CI", 2024).Return(sources.UnavailableResult[float64](sources.ReasonHTTPStatus))
	trade.On("FetchTradePrice", mock.Anything, "GN", 2024).Return(sources.AvailableResult(1150.0))
	trade.On("FetchTradePrice", mock.Anything, "TZ", 2024).Return(sources.AvailableResult(1420.0))
	trade.On("FetchTradePrice", mock.Anything, "BJ", 2024).Return(sources.AvailableResult(1250.0))
	trade.On("FetchLatestPrice", mock.Anything, mock.Anything, 2024).Return(sources.AvailableResult(1350.0))

	vessels := &mockVessels{}
	vessels.On("Enabled").Return(vesselsEnabled).Maybe()
	if vesselsEnabled {
		vessels.On("FetchVesselArrivals", mock.Anything, config.DefaultVesselLimit).Return(
			sources.AvailableResult([]domain.VesselRecord{
				{VesselName: "MV CASHEW STAR", LastPort: "TEMA"},
				{VesselName: "KOTA RIA", LastPort: "ABIDJAN"},
			}))
	} else {
		vessels.On("FetchVesselArrivals", mock.Anything, mock.Anything).Return(
			sources.UnavailableResult[[]domain.VesselRecord](sources.ReasonDisabled))
	}

	logger, logs := testutil.NewTestLogger(t)
	p, err := NewPipelineContext(context.Background(), cfg, PipelineDeps{
		Trade:   trade,
		Vessels: vessels,
		Logger:  logger,
		Now:     func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return &fixture{pipeline: p, trade: trade, vessels: vessels, logs: logs}
}

func TestNewPipelineContextMissingLedgerIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "RCN JAN 2020 TO DEC 2024.xlsx")

	_, err := NewPipelineContext(context.Background(), cfg, PipelineDeps{
		Trade:   &mockTrade{},
		Vessels: &mockVessels{},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.ErrorIs(t, err, dataprocessing.ErrLedgerNotFound)
}

func TestLedgerDirectoryUsesNewestFile(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "old.csv")
	require.NoError(t, os.WriteFile(older, []byte("a\nb\nc\nd\ne\nDATE,PORT CODE\n2020-01-01,INTUT1\n"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, old, old))

	data, err := os.ReadFile(writeLedgerCSV(t))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.csv"), data, 0o644))

	cfg := config.Default()
	cfg.Ledger.Path = dir
	trade, vessels := &mockTrade{}, &mockVessels{}
	trade.On("Enabled").Return(false)
	vessels.On("Enabled").Return(false)

	p, err := NewPipelineContext(context.Background(), cfg, PipelineDeps{Trade: trade, Vessels: vessels})
	require.NoError(t, err)

	records, err := p.Ledger(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 27)
}

func TestLedgerDirectoryWithoutFilesIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Path = t.TempDir()

	_, err := NewPipelineContext(context.Background(), cfg, PipelineDeps{
		Trade: &mockTrade{}, Vessels: &mockVessels{},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.ErrorIs(t, err, dataprocessing.ErrLedgerNotFound)
}

func TestComputeDashboardState(t *testing.T) {
	f := newFixture(t, true)
	testutil.AssertLogContains(t, f.logs, slog.LevelInfo, "pipeline ready")

	state, err := f.pipeline.ComputeDashboardState(context.Background(), domain.Filters{})
	require.NoError(t, err)

	assert.Equal(t, "RBS", state.Filters.Grade)
	assert.Equal(t, config.OriginCodes(), state.Filters.Origins)
	assert.Equal(t, 3, state.Filters.Horizon)
	assert.Equal(t, testNow, state.GeneratedAt)

	require.NotNil(t, state.KPIs.LatestCIF)
	assert.InDelta(t, (24*1100.0+5*276+3*1500)/27, *state.KPIs.LatestCIF, 1e-9)
	require.NotNil(t, state.KPIs.LatestFOB)
	assert.InDelta(t, 1350, *state.KPIs.LatestFOB, 1e-9)
	assert.Equal(t, "GH", state.KPIs.LatestFOBOrigin)
	assert.Equal(t, 2024, state.KPIs.ImportsYear)
	assert.InDelta(t, 150, state.KPIs.ImportsTonnes, 1e-9)

	assert.Equal(t, "RBS", state.PriceSeries.Key)
	assert.Equal(t, 24, state.PriceSeries.Len())
	require.True(t, state.ForecastAvailable)
	require.NotNil(t, state.Forecast)
	assert.Len(t, state.Forecast.Points, 27)
	assert.Nil(t, state.FallbackSeries)

	isos := make([]string, len(state.BuyOptions))
	for i, b := range state.BuyOptions {
		isos[i] = b.ISO
	}
	assert.Equal(t, []string{"GN", "BJ", "GH", "TZ"}, isos)

	require.Len(t, state.SellOptions, 10)
	for i := 1; i < len(state.SellOptions); i++ {
		assert.GreaterOrEqual(t, state.SellOptions[i-1].AvgPrice, state.SellOptions[i].AvgPrice)
	}
	assert.Equal(t, "IMPORTER NC", state.SellOptions[0].Importer)

	assert.True(t, state.VesselFeedEnabled)
	assert.Len(t, state.Vessels, 2)
	assert.Len(t, state.MonthlyVolume, 24)

	require.NotEmpty(t, state.TopOrigins)
	assert.LessOrEqual(t, len(state.TopOrigins), config.TopOriginsLimit)
	for _, o := range state.TopOrigins {
		assert.NotEqual(t, "ELSEWHERE", o.Country)
	}
}

func TestComputeDashboardStateFallback(t *testing.T) {
	f := newFixture(t, false)

	state, err := f.pipeline.ComputeDashboardState(context.Background(),
		domain.Filters{Grade: "NC", Origins: []string{"CI"}, Horizon: 6})
	require.NoError(t, err)

	assert.Equal(t, 3, state.PriceSeries.Len())
	assert.False(t, state.ForecastAvailable)
	assert.Nil(t, state.Forecast)
	require.NotNil(t, state.FallbackSeries)
	assert.Equal(t, FallbackSeriesKey, state.FallbackSeries.Key)
	assert.Equal(t, 24, state.FallbackSeries.Len())

	assert.Empty(t, state.BuyOptions, "only origin is unavailable")
	assert.NotNil(t, state.BuyOptions)
	assert.Equal(t, "CI", state.KPIs.LatestFOBOrigin)

	assert.False(t, state.VesselFeedEnabled)
	assert.NotNil(t, state.Vessels)
	assert.Empty(t, state.Vessels)
}

func TestComputeDashboardStateRejectsInvalidFilters(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name    string
		filters domain.Filters
		field   string
	}{
		{"unknown grade", domain.Filters{Grade: "W320"}, "grade"},
		{"unknown origin", domain.Filters{Origins: []string{"GH", "US"}}, "origins[1]"},
		{"repeated origin", domain.Filters{Origins: []string{"GH", "GH", "CI"}}, "origins"},
		{"horizon too long", domain.Filters{Horizon: 7}, "horizon"},
		{"negative horizon", domain.Filters{Horizon: -1}, "horizon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pipeline.ComputeDashboardState(context.Background(), tt.filters)
			require.Error(t, err)

			var apiErr *apperrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, 400, apiErr.StatusCode)
			details, ok := apiErr.Details.([]apperrors.ValidationError)
			require.True(t, ok)
			require.NotEmpty(t, details)
			assert.Equal(t, tt.field, details[0].Field)
		})
	}
	f.trade.AssertNotCalled(t, "FetchTradePrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyOptionsRejectsRepeatedOrigins(t *testing.T) {
	f := newFixture(t, true)

	options, err := f.pipeline.BuyOptions(context.Background(), []string{"GH", "GH", "CI"})
	require.Error(t, err)
	assert.Nil(t, options)

	var apiErr *apperrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
	f.trade.AssertNotCalled(t, "FetchTradePrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestComputeDashboardStateCachesSources(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.pipeline.ComputeDashboardState(ctx, domain.Filters{})
		require.NoError(t, err)
	}

	f.trade.AssertNumberOfCalls(t, "FetchTradePrice", 4+3) // CI is retried every run
	f.trade.AssertNumberOfCalls(t, "FetchLatestPrice", 1)
	f.vessels.AssertNumberOfCalls(t, "FetchVesselArrivals", 1)

	stats := f.pipeline.Cache().Stats()
	assert.Equal(t, 1, stats.Namespaces[cache.NamespaceForecast])
	assert.Equal(t, 1, stats.Namespaces[cache.NamespaceLedger])
	assert.Greater(t, stats.Hits, int64(0))
}

func TestInvalidateCache(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.pipeline.BuyOptions(ctx, []string{"GH"})
	require.NoError(t, err)

	_, err = f.pipeline.InvalidateCache("nonsense")
	assert.ErrorIs(t, err, ErrUnknownNamespace)

	n, err := f.pipeline.InvalidateCache(cache.NamespaceComtrade)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.pipeline.BuyOptions(ctx, []string{"GH"})
	require.NoError(t, err)
	f.trade.AssertNumberOfCalls(t, "FetchTradePrice", 2)

	n, err = f.pipeline.InvalidateCache("")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "ledger and one trade price")
	assert.Zero(t, f.pipeline.Cache().Len())
}

func TestSectionViews(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	view, err := f.pipeline.PriceForecast(ctx, "RBS", 2)
	require.NoError(t, err)
	assert.True(t, view.ForecastAvailable)
	assert.Len(t, view.Forecast.Projected(), 2)

	_, err = f.pipeline.PriceForecast(ctx, "XX", 2)
	assert.Error(t, err)

	sell, err := f.pipeline.SellOptions(ctx)
	require.NoError(t, err)
	assert.Len(t, sell, 10)

	volume, err := f.pipeline.ImportVolume(ctx)
	require.NoError(t, err)
	assert.Len(t, volume.Monthly, 24)

	board := f.pipeline.Vessels(ctx, 0)
	assert.Equal(t, "available", board.Status)
	assert.Len(t, board.Vessels, 2)
}
