package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"rcnpulse/internal/cache"
	"rcnpulse/internal/config"
	"rcnpulse/internal/dataprocessing"
	apperrors "rcnpulse/internal/errors"
	"rcnpulse/internal/files"
	"rcnpulse/internal/forecast"
	"rcnpulse/internal/infrastructure"
	"rcnpulse/internal/middleware"
	"rcnpulse/internal/sources"
	"rcnpulse/internal/validation"
	"rcnpulse/pkg/contracts/domain"
)

// TradeSource provides annual FOB prices per origin
type TradeSource interface {
	Enabled() bool
	FetchTradePrice(ctx context.Context, originISO string, year int) sources.Result[float64]
	FetchLatestPrice(ctx context.Context, originISO string, year int) sources.Result[float64]
}

// VesselSource lists expected arrivals at the destination port
type VesselSource interface {
	Enabled() bool
	FetchVesselArrivals(ctx context.Context, limit int) sources.Result[[]domain.VesselRecord]
}

// Validator checks request structs
type Validator interface {
	ValidateStruct(s interface{}) error
}

// PipelineDeps are the optional collaborators of a PipelineContext. Nil
// fields get production defaults built from the configuration.
type PipelineDeps struct {
	Trade     TradeSource
	Vessels   VesselSource
	Cache     *cache.Cache
	Validator Validator
	Logger    *slog.Logger
	Metrics   *infrastructure.PipelineMetrics
	Now       func() time.Time
}

// PipelineContext holds everything a pipeline run needs. It has no
// mutable state of its own; memoized values live in the cache.
type PipelineContext struct {
	cfg          *config.Config
	ledgerPath   string
	ledgerOpts   dataprocessing.LedgerOptions
	forecastOpts forecast.Options

	trade     TradeSource
	vessels   VesselSource
	cache     *cache.Cache
	validator Validator
	logger    *slog.Logger
	metrics   *infrastructure.PipelineMetrics
	now       func() time.Time
}

// NewPipelineContext builds the pipeline and loads the ledger. A missing
// ledger is returned as a fatal AppError.
func NewPipelineContext(ctx context.Context, cfg *config.Config, deps PipelineDeps) (*PipelineContext, error) {
	logger := infrastructure.WithComponent(deps.Logger, "pipeline")

	p := &PipelineContext{
		cfg:          cfg,
		ledgerPath:   cfg.ResolveLedgerPath(),
		ledgerOpts:   dataprocessing.LedgerOptionsFrom(cfg.Ledger),
		forecastOpts: forecast.OptionsFrom(cfg.Forecast),
		trade:        deps.Trade,
		vessels:      deps.Vessels,
		cache:        deps.Cache,
		validator:    deps.Validator,
		logger:       logger,
		metrics:      deps.Metrics,
		now:          deps.Now,
	}
	p.ledgerOpts.Logger = deps.Logger

	if p.cache == nil {
		p.cache = cache.New(
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
			cache.WithMetrics(deps.Metrics),
			cache.WithLogger(deps.Logger))
	}
	if p.trade == nil {
		p.trade = sources.NewComtradeClient(cfg.Comtrade,
			sources.WithLogger(deps.Logger), sources.WithMetrics(deps.Metrics))
	}
	if p.vessels == nil {
		p.vessels = sources.NewMarineTrafficClient(cfg.MarineTraffic,
			sources.WithLogger(deps.Logger), sources.WithMetrics(deps.Metrics))
	}
	if p.validator == nil {
		p.validator = middleware.NewValidator()
	}
	if p.now == nil {
		p.now = time.Now
	}

	records, err := p.Ledger(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "ledger load failed",
			slog.String("path", p.ledgerPath),
			slog.String("error", err.Error()))
		return nil, err
	}

	logger.InfoContext(ctx, "pipeline ready",
		slog.String("ledger", p.ledgerPath),
		slog.Int("ledger_rows", len(records)),
		slog.Bool("comtrade_enabled", p.trade.Enabled()),
		slog.Bool("marinetraffic_enabled", p.vessels.Enabled()))
	return p, nil
}

// Cache exposes the memo table for stats and invalidation
func (p *PipelineContext) Cache() *cache.Cache {
	return p.cache
}

// Config returns the configuration the pipeline was built with
func (p *PipelineContext) Config() *config.Config {
	return p.cfg
}

func (p *PipelineContext) ledgerKey() cache.Key {
	return cache.NewKey(cache.NamespaceLedger,
		p.ledgerPath, p.ledgerOpts.HeaderRows, p.ledgerOpts.PortCode, p.ledgerOpts.Sheet)
}

// Ledger returns the parsed ledger, loading it on first use
func (p *PipelineContext) Ledger(ctx context.Context) ([]domain.ShipmentRecord, error) {
	return cache.Compute(ctx, p.cache, p.ledgerKey(), func(ctx context.Context) ([]domain.ShipmentRecord, error) {
		ctx, span := infrastructure.StartSpan(ctx, "pipeline.load_ledger")
		defer span.End()

		path, err := p.ledgerFile()
		if err != nil {
			infrastructure.RecordError(ctx, err)
			return nil, err
		}
		records, err := dataprocessing.LoadLedger(path, p.ledgerOpts)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			return nil, err
		}
		p.metrics.SetLedgerRows(ctx, len(records))
		return records, nil
	})
}

// ledgerFile returns the configured ledger, or the newest ledger file when
// the configured path is a directory
func (p *PipelineContext) ledgerFile() (string, error) {
	info, err := os.Stat(p.ledgerPath)
	if err != nil || !info.IsDir() {
		return p.ledgerPath, nil
	}

	latest, err := files.NewDiscovery("", validation.LedgerExtensions...).LatestLedger(p.ledgerPath)
	if err != nil {
		return "", apperrors.NewFatalError("no ledger file in directory",
			fmt.Errorf("%w: %v", dataprocessing.ErrLedgerNotFound, err))
	}
	p.logger.Info("ledger discovered",
		slog.String("directory", p.ledgerPath),
		slog.String("file", latest.Name))
	return latest.Path, nil
}

// FetchTradePrice is the cached mean FOB price of an origin for a year.
// Only Available results are memoized.
func (p *PipelineContext) FetchTradePrice(ctx context.Context, originISO string, year int) sources.Result[float64] {
	key := cache.NewKey(cache.NamespaceComtrade, "mean", originISO, year)
	return p.cachedResult(ctx, key, func(ctx context.Context) sources.Result[float64] {
		return p.trade.FetchTradePrice(ctx, originISO, year)
	})
}

// LatestPrice is the cached unit price of the last trade sub-record
func (p *PipelineContext) LatestPrice(ctx context.Context, originISO string, year int) sources.Result[float64] {
	key := cache.NewKey(cache.NamespaceComtrade, "latest", originISO, year)
	return p.cachedResult(ctx, key, func(ctx context.Context) sources.Result[float64] {
		return p.trade.FetchLatestPrice(ctx, originISO, year)
	})
}

func (p *PipelineContext) cachedResult(ctx context.Context, key cache.Key, fetch func(context.Context) sources.Result[float64]) sources.Result[float64] {
	res, err := cache.Compute(ctx, p.cache, key, func(ctx context.Context) (sources.Result[float64], error) {
		res := fetch(ctx)
		if !res.OK() {
			return res, &unavailableError{reason: res.Reason}
		}
		return res, nil
	})
	if err != nil {
		return resultFromError[float64](err)
	}
	return res
}

// VesselArrivals is the cached vessel board
func (p *PipelineContext) VesselArrivals(ctx context.Context, limit int) sources.Result[[]domain.VesselRecord] {
	key := cache.NewKey(cache.NamespaceVessels, limit)
	res, err := cache.Compute(ctx, p.cache, key, func(ctx context.Context) (sources.Result[[]domain.VesselRecord], error) {
		res := p.vessels.FetchVesselArrivals(ctx, limit)
		if !res.OK() {
			return res, &unavailableError{reason: res.Reason}
		}
		return res, nil
	})
	if err != nil {
		return resultFromError[[]domain.VesselRecord](err)
	}
	return res
}

type forecastOutcome struct {
	result *domain.ForecastResult
	ok     bool
}

// Forecast fits series once per distinct series and horizon
func (p *PipelineContext) Forecast(ctx context.Context, series domain.PriceSeries, horizon int) (*domain.ForecastResult, bool) {
	key := cache.NewKey(cache.NamespaceForecast, series, horizon, p.forecastOpts)
	out, err := cache.Compute(ctx, p.cache, key, func(ctx context.Context) (forecastOutcome, error) {
		_, span := infrastructure.StartSpan(ctx, "pipeline.forecast")
		defer span.End()

		res, ok := forecast.Forecast(series, horizon, p.forecastOpts)
		p.metrics.RecordForecast(ctx, ok)
		return forecastOutcome{result: res, ok: ok}, nil
	})
	if err != nil {
		return nil, false
	}
	return out.result, out.ok
}

// CacheNamespaces lists the namespaces InvalidateCache accepts
var CacheNamespaces = []string{
	cache.NamespaceLedger,
	cache.NamespaceComtrade,
	cache.NamespaceVessels,
	cache.NamespaceForecast,
}

// InvalidateCache drops one namespace, or everything when namespace is
// empty, and returns the number of entries removed
func (p *PipelineContext) InvalidateCache(namespace string) (int, error) {
	if namespace == "" {
		n := p.cache.Len()
		p.cache.Clear()
		return n, nil
	}
	if !slices.Contains(CacheNamespaces, namespace) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}
	return p.cache.InvalidateNamespace(namespace), nil
}
