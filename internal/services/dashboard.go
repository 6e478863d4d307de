package services

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"rcnpulse/internal/config"
	"rcnpulse/internal/dataprocessing"
	"rcnpulse/internal/infrastructure"
	"rcnpulse/internal/ranking"
	"rcnpulse/pkg/contracts/domain"
)

// FallbackSeriesKey names the all-grades series shown when no forecast
// can be fitted
const FallbackSeriesKey = "all"

// PriceView is the price tab: the grade series with its forecast, or the
// all-grades series when the history is too short
type PriceView struct {
	Series            domain.PriceSeries     `json:"series"`
	Forecast          *domain.ForecastResult `json:"forecast,omitempty"`
	ForecastAvailable bool                   `json:"forecast_available"`
	FallbackSeries    *domain.PriceSeries    `json:"fallback_series,omitempty"`
}

// VesselBoard is the vessel tab with the feed status
type VesselBoard struct {
	Enabled bool                  `json:"enabled"`
	Status  string                `json:"status"`
	Reason  string                `json:"reason,omitempty"`
	Vessels []domain.VesselRecord `json:"vessels"`
}

// VolumeView is the imports tab
type VolumeView struct {
	Monthly    []domain.VolumePoint  `json:"monthly"`
	TopOrigins []domain.OriginVolume `json:"top_origins"`
}

// ResolveFilters fills defaults and validates. A nil origin list selects
// every configured origin; an empty non-nil list selects none.
func (p *PipelineContext) ResolveFilters(f domain.Filters) (domain.Filters, error) {
	if f.Grade == "" {
		f.Grade = config.Grades[0].Code
	}
	if f.Origins == nil {
		f.Origins = config.OriginCodes()
	}
	if f.Horizon == 0 {
		f.Horizon = p.cfg.Forecast.DefaultHorizon
	}
	if err := p.validator.ValidateStruct(f); err != nil {
		return f, err
	}
	return f, nil
}

// ComputeDashboardState derives the full dashboard for one filter
// selection from the ledger and the adapters. It has no side effects
// beyond filling the cache.
func (p *PipelineContext) ComputeDashboardState(ctx context.Context, filters domain.Filters) (*domain.DashboardState, error) {
	start := time.Now()
	ctx, span := infrastructure.StartSpan(ctx, "pipeline.dashboard")
	defer span.End()

	filters, err := p.ResolveFilters(filters)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("rcn.grade", filters.Grade),
		attribute.StringSlice("rcn.origins", filters.Origins),
		attribute.Int("rcn.horizon", filters.Horizon))

	ledger, err := p.Ledger(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	now := p.now()

	kpis := p.kpis(ctx, ledger, filters, now)
	prices := p.priceView(ctx, ledger, filters.Grade, filters.Horizon)
	board := p.Vessels(ctx, p.cfg.Dashboard.VesselLimit)

	state := &domain.DashboardState{
		Filters:           filters,
		KPIs:              kpis,
		PriceSeries:       prices.Series,
		Forecast:          prices.Forecast,
		ForecastAvailable: prices.ForecastAvailable,
		FallbackSeries:    prices.FallbackSeries,
		BuyOptions:        ranking.BuyRanking(ctx, p, selectedOrigins(filters.Origins), priceYear(now)),
		SellOptions:       ranking.SellRanking(ledger),
		Vessels:           board.Vessels,
		VesselFeedEnabled: board.Enabled,
		MonthlyVolume:     dataprocessing.MonthlyVolumeSeries(ledger, nil),
		TopOrigins:        ranking.TopOrigins(ledger, now, config.TopOriginsLimit),
		GeneratedAt:       now.UTC(),
	}

	p.metrics.RecordDashboard(ctx, time.Since(start))
	p.logger.DebugContext(ctx, "dashboard computed",
		slog.String("grade", filters.Grade),
		slog.Int("series_points", state.PriceSeries.Len()),
		slog.Bool("forecast", state.ForecastAvailable),
		slog.Int("buy_options", len(state.BuyOptions)),
		slog.Duration("duration", time.Since(start)))

	return state, nil
}

// priceYear is the year of the trade statistics shown: the last complete
// calendar year
func priceYear(now time.Time) int {
	return now.Year() - 1
}

func selectedOrigins(isos []string) []config.Origin {
	out := make([]config.Origin, 0, len(isos))
	for _, iso := range isos {
		if o, ok := config.LookupOrigin(iso); ok {
			out = append(out, o)
		}
	}
	return out
}

func (p *PipelineContext) kpis(ctx context.Context, ledger []domain.ShipmentRecord, filters domain.Filters, now time.Time) domain.KPIs {
	var k domain.KPIs

	if cif, ok := dataprocessing.LatestCIF(ledger, config.LatestCIFWindow); ok {
		k.LatestCIF = &cif
	}

	origin := config.Origins[0].ISO
	if len(filters.Origins) > 0 {
		origin = filters.Origins[0]
	}
	k.LatestFOBOrigin = origin
	if fob, ok := p.LatestPrice(ctx, origin, priceYear(now)).Get(); ok {
		k.LatestFOB = &fob
	}

	k.ImportsYear = p.cfg.Dashboard.ImportsYear
	if k.ImportsYear == 0 {
		k.ImportsYear = latestYear(ledger)
	}
	k.ImportsTonnes = dataprocessing.TotalTonnes(ledger, dataprocessing.InYear(k.ImportsYear))
	return k
}

func latestYear(ledger []domain.ShipmentRecord) int {
	year := 0
	for _, r := range ledger {
		if r.Date != nil && r.Date.Year() > year {
			year = r.Date.Year()
		}
	}
	return year
}

func (p *PipelineContext) priceView(ctx context.Context, ledger []domain.ShipmentRecord, grade string, horizon int) PriceView {
	view := PriceView{
		Series: dataprocessing.MonthlyPriceSeries(ledger, dataprocessing.GradeFilter(grade), grade),
	}
	view.Forecast, view.ForecastAvailable = p.Forecast(ctx, view.Series, horizon)
	if !view.ForecastAvailable {
		fallback := dataprocessing.MonthlyPriceSeries(ledger, nil, FallbackSeriesKey)
		view.FallbackSeries = &fallback
	}
	return view
}

// PriceForecast returns the price tab for grade and horizon
func (p *PipelineContext) PriceForecast(ctx context.Context, grade string, horizon int) (*PriceView, error) {
	filters, err := p.ResolveFilters(domain.Filters{Grade: grade, Horizon: horizon})
	if err != nil {
		return nil, err
	}
	ledger, err := p.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	view := p.priceView(ctx, ledger, filters.Grade, filters.Horizon)
	return &view, nil
}

// BuyOptions ranks the given origins, or all configured origins when nil
func (p *PipelineContext) BuyOptions(ctx context.Context, origins []string) ([]domain.BuyOption, error) {
	filters, err := p.ResolveFilters(domain.Filters{Origins: origins})
	if err != nil {
		return nil, err
	}
	return ranking.BuyRanking(ctx, p, selectedOrigins(filters.Origins), priceYear(p.now())), nil
}

// SellOptions ranks importers by the mean price they paid
func (p *PipelineContext) SellOptions(ctx context.Context) ([]domain.SellOption, error) {
	ledger, err := p.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.SellRanking(ledger), nil
}

// Vessels returns the vessel board. A limit of zero or less uses the
// configured default.
func (p *PipelineContext) Vessels(ctx context.Context, limit int) VesselBoard {
	if limit <= 0 {
		limit = p.cfg.Dashboard.VesselLimit
	}
	board := VesselBoard{Enabled: p.vessels.Enabled(), Vessels: []domain.VesselRecord{}}

	res := p.VesselArrivals(ctx, limit)
	board.Status = res.Status.String()
	board.Reason = res.Reason
	if vessels, ok := res.Get(); ok && vessels != nil {
		board.Vessels = vessels
	}
	return board
}

// ImportVolume returns monthly tonnage and the top origins of the last
// twelve months
func (p *PipelineContext) ImportVolume(ctx context.Context) (*VolumeView, error) {
	ledger, err := p.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	return &VolumeView{
		Monthly:    dataprocessing.MonthlyVolumeSeries(ledger, nil),
		TopOrigins: ranking.TopOrigins(ledger, p.now(), config.TopOriginsLimit),
	}, nil
}
