package http

import (
	"errors"
	"net/http"

	apierrors "rcnpulse/internal/errors"
)

var errMetricsDisabled = errors.New("metric exporter is not prometheus")

// MetricsHandler serves the Prometheus registry fed by the OpenTelemetry
// exporter
type MetricsHandler struct {
	prometheus   http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler creates a metrics handler. A nil prometheus handler
// means the metric exporter is off and /metrics answers 404.
func NewMetricsHandler(prometheus http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus, errorHandler: errorHandler}
}

// Enabled reports whether a registry is being served
func (h *MetricsHandler) Enabled() bool {
	return h.prometheus != nil
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("metrics exporter", errMetricsDisabled))
		return
	}
	h.prometheus.ServeHTTP(w, r)
}
