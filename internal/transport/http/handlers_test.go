package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rcnpulse/internal/cache"
	apierrors "rcnpulse/internal/errors"
	"rcnpulse/internal/middleware"
	"rcnpulse/internal/services"
	"rcnpulse/internal/shared/testutil"
	"rcnpulse/pkg/contracts/domain"
)

type mockDashboard struct {
	mock.Mock
}

func (m *mockDashboard) ComputeDashboardState(ctx context.Context, filters domain.Filters) (*domain.DashboardState, error) {
	args := m.Called(ctx, filters)
	state, _ := args.Get(0).(*domain.DashboardState)
	return state, args.Error(1)
}

func (m *mockDashboard) PriceForecast(ctx context.Context, grade string, horizon int) (*services.PriceView, error) {
	args := m.Called(ctx, grade, horizon)
	view, _ := args.Get(0).(*services.PriceView)
	return view, args.Error(1)
}

func (m *mockDashboard) BuyOptions(ctx context.Context, origins []string) ([]domain.BuyOption, error) {
	args := m.Called(ctx, origins)
	options, _ := args.Get(0).([]domain.BuyOption)
	return options, args.Error(1)
}

func (m *mockDashboard) SellOptions(ctx context.Context) ([]domain.SellOption, error) {
	args := m.Called(ctx)
	options, _ := args.Get(0).([]domain.SellOption)
	return options, args.Error(1)
}

func (m *mockDashboard) Vessels(ctx context.Context, limit int) services.VesselBoard {
	return m.Called(ctx, limit).Get(0).(services.VesselBoard)
}

func (m *mockDashboard) ImportVolume(ctx context.Context) (*services.VolumeView, error) {
	args := m.Called(ctx)
	view, _ := args.Get(0).(*services.VolumeView)
	return view, args.Error(1)
}

func newDashboardRouter(t *testing.T, svc DashboardService) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	r := chi.NewRouter()
	r.Use(middleware.JSONContent)
	r.Mount("/api", NewDashboardHandler(svc, logger, apierrors.NewErrorHandler(logger, false)).Routes())
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func readCSVBody(t *testing.T, rec *httptest.ResponseRecorder) [][]string {
	t.Helper()
	data := bytes.TrimPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF})
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestGetDashboard(t *testing.T) {
	svc := &mockDashboard{}
	want := domain.Filters{Grade: "NC", Origins: []string{"GH", "CI"}, Horizon: 4}
	svc.On("ComputeDashboardState", mock.Anything, want).Return(&domain.DashboardState{
		Filters:           want,
		ForecastAvailable: true,
		BuyOptions:        []domain.BuyOption{{Origin: "Ghana", ISO: "GH", FOBPrice: 1300}},
		GeneratedAt:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}, nil)

	rec := do(t, newDashboardRouter(t, svc), http.MethodGet, "/api/dashboard?grade=nc&origins=gh,%20CI&horizon=4", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, true, body["forecast_available"])
	assert.Len(t, body["buy_options"], 1)
	svc.AssertExpectations(t)
}

func TestGetDashboardErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		serviceErr error
		wantStatus int
		wantType   string
	}{
		{
			name:       "unparseable horizon",
			target:     "/api/dashboard?horizon=soon",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "invalid filters",
			target:     "/api/dashboard?grade=W320",
			serviceErr: apierrors.ErrValidation("grade", "grade must be one of: RBS, NC"),
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "ledger gone",
			target:     "/api/dashboard",
			serviceErr: apierrors.NewFatalError("ledger file not found", nil),
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockDashboard{}
			if tt.serviceErr != nil {
				svc.On("ComputeDashboardState", mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			}

			rec := do(t, newDashboardRouter(t, svc), http.MethodGet, tt.target, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeJSON(t, rec)
			assert.EqualValues(t, tt.wantStatus, body["status"])
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
			}
			if tt.serviceErr == nil {
				svc.AssertNotCalled(t, "ComputeDashboardState", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestGetBuyRanking(t *testing.T) {
	options := []domain.BuyOption{
		{Origin: "Guinea", ISO: "GN", FOBPrice: 1150},
		{Origin: "Ghana", ISO: "GH", FOBPrice: 1300},
	}

	t.Run("all origins by default", func(t *testing.T) {
		svc := &mockDashboard{}
		svc.On("BuyOptions", mock.Anything, []string(nil)).Return(options, nil)

		rec := do(t, newDashboardRouter(t, svc), http.MethodGet, "/api/rankings/buy", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 2, decodeJSON(t, rec)["count"])
	})

	t.Run("empty selection", func(t *testing.T) {
		svc := &mockDashboard{}
		svc.On("BuyOptions", mock.Anything, []string{}).Return([]domain.BuyOption{}, nil)

		rec := do(t, newDashboardRouter(t, svc), http.MethodGet, "/api/rankings/buy?origins=", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 0, decodeJSON(t, rec)["count"])
	})

	t.Run("csv", func(t *testing.T) {
		svc := &mockDashboard{}
		svc.On("BuyOptions", mock.Anything, []string{"GN", "GH"}).Return(options, nil)

		rec := do(t, newDashboardRouter(t, svc), http.MethodGet, "/api/rankings/buy?origins=GN,GH&format=csv", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `"buy-ranking.csv"`)
		rows := readCSVBody(t, rec)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"Guinea", "GN", "1150.00"}, rows[1])
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := do(t, newDashboardRouter(t, &mockDashboard{}), http.MethodGet, "/api/rankings/buy?format=xml", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetSellRankingCSV(t *testing.T) {
	svc := &mockDashboard{}
	svc.On("SellOptions", mock.Anything).Return([]domain.SellOption{
		{Importer: "AGRO, LTD", AvgPrice: 1400, TotalQuantity: 20000},
	}, nil)

	rec := do(t, newDashboardRouter(t, svc), http.MethodGet, "/api/rankings/sell?format=csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	rows := readCSVBody(t, rec)
	assert.Equal(t, []string{"Buyer", "Avg USD/t", "Volume (kg)"}, rows[0])
	assert.Equal(t, "AGRO, LTD", rows[1][0])
}

func TestGetPriceForecast(t *testing.T) {
	month := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	series := domain.PriceSeries{Key: "NC", Points: []domain.PricePoint{{Month: month, Price: 1500, Count: 1}}}
	fallback := domain.PriceSeries{Key: services.FallbackSeriesKey, Points: []domain.PricePoint{
		{Month: month.AddDate(0, -1, 0), Price: 1200, Count: 3},
		{Month: month, Price: 1250, Count: 4},
	}}

	svc := &mockDashboard{}
	svc.On("PriceForecast", mock.Anything, "NC", 2).Return(&services.PriceView{
		Series:         series,
		FallbackSeries: &fallback,
	}, nil)
	router := newDashboardRouter(t, svc)

	rec := do(t, router, http.MethodGet, "/api/prices/forecast?grade=NC&horizon=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, false, body["forecast_available"])
	assert.NotNil(t, body["fallback_series"])

	rec = do(t, router, http.MethodGet, "/api/prices/forecast?grade=NC&horizon=2&format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := readCSVBody(t, rec)
	require.Len(t, rows, 3)
	assert.Equal(t, services.FallbackSeriesKey, rows[1][0])
}

func TestGetVessels(t *testing.T) {
	svc := &mockDashboard{}
	svc.On("Vessels", mock.Anything, 5).Return(services.VesselBoard{
		Enabled: false,
		Status:  "unavailable",
		Reason:  "disabled",
		Vessels: []domain.VesselRecord{},
	})
	router := newDashboardRouter(t, svc)

	rec := do(t, router, http.MethodGet, "/api/vessels?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "disabled", body["reason"])
	assert.Equal(t, []interface{}{}, body["vessels"])

	rec = do(t, router, http.MethodGet, "/api/vessels?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetImportVolume(t *testing.T) {
	svc := &mockDashboard{}
	svc.On("ImportVolume", mock.Anything).Return(&services.VolumeView{
		Monthly:    []domain.VolumePoint{{Month: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Tonnes: 42}},
		TopOrigins: []domain.OriginVolume{{Country: "GHANA", Tonnes: 42}},
	}, nil)

	rec := do(t, newDashboardRouter(t, svc), http.MethodGet, "/api/imports/volume?format=csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [][]string{{"Month", "Tonnes"}, {"2024-05", "42.00"}}, readCSVBody(t, rec))
}

type fakeCacheService struct {
	cache *cache.Cache
}

func (f *fakeCacheService) Cache() *cache.Cache { return f.cache }

func (f *fakeCacheService) InvalidateCache(namespace string) (int, error) {
	switch namespace {
	case "":
		n := f.cache.Len()
		f.cache.Clear()
		return n, nil
	case cache.NamespaceComtrade, cache.NamespaceLedger, cache.NamespaceVessels, cache.NamespaceForecast:
		return f.cache.InvalidateNamespace(namespace), nil
	default:
		return 0, fmt.Errorf("%w: %q", services.ErrUnknownNamespace, namespace)
	}
}

func TestCacheHandler(t *testing.T) {
	c := cache.New()
	ctx := context.Background()
	for _, iso := range []string{"GH", "CI"} {
		_, err := c.GetOrCompute(ctx, cache.NewKey(cache.NamespaceComtrade, iso), func(context.Context) (interface{}, error) {
			return 1.0, nil
		})
		require.NoError(t, err)
	}

	logger, _ := testutil.NewTestLogger(t)
	r := chi.NewRouter()
	r.Use(middleware.JSONContent)
	r.Mount("/api/cache", NewCacheHandler(&fakeCacheService{cache: c}, logger, apierrors.NewErrorHandler(logger, false)).Routes())

	rec := do(t, r, http.MethodGet, "/api/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeJSON(t, rec)["entries"])

	rec = do(t, r, http.MethodPost, "/api/cache/invalidate", []byte(`{"namespace":"weather"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/cache/invalidate", []byte(`{"namespace":"comtrade"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeJSON(t, rec)["removed"])

	rec = do(t, r, http.MethodPost, "/api/cache/invalidate", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/cache/invalidate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeJSON(t, rec)["removed"])
}

type staticChecker map[string]services.ServiceHealth

func (s staticChecker) CheckDependencies(context.Context) map[string]services.ServiceHealth {
	return s
}

func TestHealthHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	tests := []struct {
		name       string
		checker    services.DependencyChecker
		route      string
		wantStatus int
		wantBody   string
	}{
		{"health", nil, "/api/health", http.StatusOK, `"status":"ok"`},
		{"live", nil, "/api/health/live", http.StatusOK, `"status":"alive"`},
		{"ready", staticChecker{"ledger": {Status: services.StateReady}}, "/api/health/ready", http.StatusOK, `"status":"ready"`},
		{"not ready", staticChecker{"ledger": {Status: services.StateNotReady}}, "/api/health/ready", http.StatusServiceUnavailable, `"status":"not_ready"`},
		{"version", nil, "/api/version", http.StatusOK, `"version":"1.0.0-test"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(services.NewHealthService("1.0.0-test", "", tt.checker, logger), logger)
			r := chi.NewRouter()
			r.Get("/api/health", h.HealthCheck)
			r.Get("/api/health/live", h.LivenessCheck)
			r.Get("/api/health/ready", h.ReadinessCheck)
			r.Get("/api/version", h.Version)

			rec := do(t, r, http.MethodGet, tt.route, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	errs := apierrors.NewErrorHandler(logger, false)

	disabled := NewMetricsHandler(nil, errs)
	assert.False(t, disabled.Enabled())
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), apierrors.TypeNotFound)
	assert.Contains(t, rec.Body.String(), "metrics exporter not found")

	enabled := NewMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "# HELP rcnpulse_up")
	}), errs)
	rec = httptest.NewRecorder()
	enabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# HELP"))
}
