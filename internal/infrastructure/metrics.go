package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// PipelineMetrics holds the instruments recorded by the data pipeline and
// the HTTP layer. All Record methods are safe on a nil receiver.
type PipelineMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	SourceRequestsTotal   metric.Int64Counter
	SourceRequestDuration metric.Float64Histogram

	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	DashboardDuration metric.Float64Histogram
	ForecastFits      metric.Int64Counter
	LedgerRows        metric.Int64Gauge
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.SourceRequestsTotal, err = meter.Int64Counter("source_requests_total",
		metric.WithDescription("External data source calls by outcome")); err != nil {
		return nil, err
	}
	if m.SourceRequestDuration, err = meter.Float64Histogram("source_request_duration_seconds",
		metric.WithDescription("External data source latency in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.CacheHits, err = meter.Int64Counter("cache_hits_total",
		metric.WithDescription("Memoized results served from cache")); err != nil {
		return nil, err
	}
	if m.CacheMisses, err = meter.Int64Counter("cache_misses_total",
		metric.WithDescription("Producers executed on cache miss")); err != nil {
		return nil, err
	}
	if m.DashboardDuration, err = meter.Float64Histogram("dashboard_compute_duration_seconds",
		metric.WithDescription("Time to assemble a dashboard state"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.ForecastFits, err = meter.Int64Counter("forecast_fits_total",
		metric.WithDescription("Forecast attempts by outcome")); err != nil {
		return nil, err
	}
	if m.LedgerRows, err = meter.Int64Gauge("ledger_rows",
		metric.WithDescription("Shipment rows held after port filtering")); err != nil {
		return nil, err
	}

	return m, nil
}

// NewNoopMetrics returns instruments that discard everything
func NewNoopMetrics() *PipelineMetrics {
	m, _ := NewPipelineMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

func (m *PipelineMetrics) RecordHTTP(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordSource counts one adapter call. outcome is "available" or
// "unavailable".
func (m *PipelineMetrics) RecordSource(ctx context.Context, source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	m.SourceRequestsTotal.Add(ctx, 1, attrs)
	m.SourceRequestDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *PipelineMetrics) RecordCache(ctx context.Context, namespace string, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("namespace", namespace))
	if hit {
		m.CacheHits.Add(ctx, 1, attrs)
		return
	}
	m.CacheMisses.Add(ctx, 1, attrs)
}

func (m *PipelineMetrics) RecordDashboard(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.DashboardDuration.Record(ctx, d.Seconds())
}

func (m *PipelineMetrics) RecordForecast(ctx context.Context, fitted bool) {
	if m == nil {
		return
	}
	outcome := "fitted"
	if !fitted {
		outcome = "insufficient_history"
	}
	m.ForecastFits.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *PipelineMetrics) SetLedgerRows(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.LedgerRows.Record(ctx, int64(n))
}
