package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "rcnpulse/internal/errors"
	"rcnpulse/internal/exporter"
	"rcnpulse/internal/services"
	"rcnpulse/pkg/contracts/domain"
)

// DashboardService is the pipeline surface the dashboard routes need
type DashboardService interface {
	ComputeDashboardState(ctx context.Context, filters domain.Filters) (*domain.DashboardState, error)
	PriceForecast(ctx context.Context, grade string, horizon int) (*services.PriceView, error)
	BuyOptions(ctx context.Context, origins []string) ([]domain.BuyOption, error)
	SellOptions(ctx context.Context) ([]domain.SellOption, error)
	Vessels(ctx context.Context, limit int) services.VesselBoard
	ImportVolume(ctx context.Context) (*services.VolumeView, error)
}

// DashboardHandler serves the dashboard and its per-tab routes
type DashboardHandler struct {
	service      DashboardService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	csv          *exporter.CSVWriter
}

// NewDashboardHandler creates a dashboard handler
func NewDashboardHandler(service DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	logger = logger.With(slog.String("component", "dashboard_handler"))
	return &DashboardHandler{
		service:      service,
		logger:       logger,
		errorHandler: errorHandler,
		csv:          exporter.NewCSVWriter().WithLogger(logger),
	}
}

// Routes returns the dashboard routes on a new router
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register adds the dashboard routes to r, for routers that also carry
// other routes at the same level
func (h *DashboardHandler) Register(r chi.Router) {
	r.Get("/dashboard", h.GetDashboard)
	r.Get("/prices/forecast", h.GetPriceForecast)
	r.Get("/rankings/buy", h.GetBuyRanking)
	r.Get("/rankings/sell", h.GetSellRanking)
	r.Get("/vessels", h.GetVessels)
	r.Get("/imports/volume", h.GetImportVolume)
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	state, err := h.service.ComputeDashboardState(r.Context(), filters)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "dashboard served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("grade", state.Filters.Grade),
		slog.Bool("forecast_available", state.ForecastAvailable))

	render.JSON(w, r, state)
}

// GetPriceForecast handles GET /api/prices/forecast. The CSV form holds the
// forecast when one exists and the fallback series otherwise.
func (h *DashboardHandler) GetPriceForecast(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, err := parseFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.PriceForecast(r.Context(), filters.Grade, filters.Horizon)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if format == formatCSV {
		switch {
		case view.ForecastAvailable:
			h.writeCSV(w, r, "forecast-"+view.Series.Key, exporter.ForecastTable(view.Forecast))
		case view.FallbackSeries != nil:
			h.writeCSV(w, r, "prices-"+view.FallbackSeries.Key, exporter.SeriesTable(*view.FallbackSeries))
		default:
			h.writeCSV(w, r, "prices-"+view.Series.Key, exporter.SeriesTable(view.Series))
		}
		return
	}
	render.JSON(w, r, view)
}

// GetBuyRanking handles GET /api/rankings/buy
func (h *DashboardHandler) GetBuyRanking(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	options, err := h.service.BuyOptions(r.Context(), parseOrigins(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if format == formatCSV {
		h.writeCSV(w, r, "buy-ranking", exporter.BuyTable(options))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"data":  options,
		"count": len(options),
	})
}

// GetSellRanking handles GET /api/rankings/sell
func (h *DashboardHandler) GetSellRanking(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	options, err := h.service.SellOptions(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if format == formatCSV {
		h.writeCSV(w, r, "sell-ranking", exporter.SellTable(options))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"data":  options,
		"count": len(options),
	})
}

// GetVessels handles GET /api/vessels. A disabled or failing feed is not
// an error; the board carries the status and an empty list.
func (h *DashboardHandler) GetVessels(w http.ResponseWriter, r *http.Request) {
	limit, err := parseInt(r, "limit")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if limit < 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", "limit must not be negative"))
		return
	}
	format, err := parseFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	board := h.service.Vessels(r.Context(), limit)
	if format == formatCSV {
		h.writeCSV(w, r, "vessels", exporter.VesselTable(board.Vessels))
		return
	}
	render.JSON(w, r, board)
}

// GetImportVolume handles GET /api/imports/volume
func (h *DashboardHandler) GetImportVolume(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.ImportVolume(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if format == formatCSV {
		h.writeCSV(w, r, "import-volume", exporter.VolumeTable(view.Monthly))
		return
	}
	render.JSON(w, r, view)
}

func (h *DashboardHandler) writeCSV(w http.ResponseWriter, r *http.Request, name string, table exporter.Table) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name+".csv"))
	w.WriteHeader(http.StatusOK)

	if err := h.csv.WriteCSV(w, table, exporter.WriteOptions{BOMPrefix: true}); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write CSV response",
			slog.String("name", name),
			slog.String("error", err.Error()))
	}
}
