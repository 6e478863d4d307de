package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"rcnpulse/internal/cache"
	apierrors "rcnpulse/internal/errors"
	"rcnpulse/internal/services"
)

// CacheService exposes cache statistics and invalidation
type CacheService interface {
	Cache() *cache.Cache
	InvalidateCache(namespace string) (int, error)
}

// CacheHandler serves /api/cache
type CacheHandler struct {
	service      CacheService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// InvalidateRequest names the namespace to drop; empty drops everything
type InvalidateRequest struct {
	Namespace string `json:"namespace"`
}

// Bind implements render.Binder
func (req *InvalidateRequest) Bind(r *http.Request) error {
	return nil
}

// NewCacheHandler creates a cache handler
func NewCacheHandler(service CacheService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CacheHandler {
	return &CacheHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "cache")),
		errorHandler: errorHandler,
	}
}

// Routes returns the cache routes
func (h *CacheHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", h.GetStats)
	r.Post("/invalidate", h.Invalidate)
	return r
}

// GetStats handles GET /api/cache/stats
func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Cache().Stats())
}

// Invalidate handles POST /api/cache/invalidate. The namespace is read from
// the JSON body or the namespace query parameter; an empty body is allowed.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	req := &InvalidateRequest{Namespace: r.URL.Query().Get("namespace")}
	if r.ContentLength != 0 {
		if err := render.Bind(r, req); err != nil && !errors.Is(err, io.EOF) {
			h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
			return
		}
	}

	removed, err := h.service.InvalidateCache(req.Namespace)
	if err != nil {
		if errors.Is(err, services.ErrUnknownNamespace) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("namespace", err.Error()))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "cache invalidated",
		slog.String("namespace", req.Namespace),
		slog.Int("removed", removed))

	render.JSON(w, r, map[string]interface{}{
		"namespace": req.Namespace,
		"removed":   removed,
	})
}
