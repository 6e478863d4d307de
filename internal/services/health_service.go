package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"rcnpulse/pkg/contracts"
)

// Component states reported by readiness checks
const (
	StateReady    = "ready"
	StateNotReady = "not_ready"
	StateDisabled = "disabled"
)

// DependencyChecker reports the state of each pipeline dependency
type DependencyChecker interface {
	CheckDependencies(ctx context.Context) map[string]ServiceHealth
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	checker   DependencyChecker
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. checker may be nil, in which
// case readiness only reflects the process itself.
func NewHealthService(version, buildTime string, checker DependencyChecker, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		checker:   checker,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status. Disabled adapters do not make
// the service unready; a component in StateNotReady does.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StateReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  map[string]ServiceHealth{},
	}
	if hs.checker != nil {
		status.Services = hs.checker.CheckDependencies(ctx)
	}

	for name, sh := range status.Services {
		if sh.Status == StateNotReady {
			status.Status = StateNotReady
			hs.logger.WarnContext(ctx, "ReadinessCheck: component not ready",
				slog.String("component", name),
				slog.String("message", sh.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"api_version":  contracts.APIVersion,
		"data_format":  contracts.DataFormatVersion,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}

	return result
}

// CheckDependencies reports the ledger, both adapters and the cache
func (p *PipelineContext) CheckDependencies(ctx context.Context) map[string]ServiceHealth {
	out := make(map[string]ServiceHealth, 4)

	if records, err := p.Ledger(ctx); err != nil {
		out["ledger"] = ServiceHealth{Status: StateNotReady, Message: err.Error()}
	} else {
		out["ledger"] = ServiceHealth{Status: StateReady, Message: fmt.Sprintf("%d rows loaded", len(records))}
	}

	out["comtrade"] = adapterHealth(p.trade.Enabled())
	out["marinetraffic"] = adapterHealth(p.vessels.Enabled())

	stats := p.cache.Stats()
	out["cache"] = ServiceHealth{
		Status:  StateReady,
		Message: fmt.Sprintf("%d entries, hit ratio %.2f", stats.Entries, stats.HitRatio),
	}
	return out
}

func adapterHealth(enabled bool) ServiceHealth {
	if !enabled {
		return ServiceHealth{Status: StateDisabled, Message: "no API key configured"}
	}
	return ServiceHealth{Status: StateReady}
}
