package transport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/middleware"
	"github.com/wadieregaieg/waadiefr/internal/service"
)

// AnalyticsHandler handles HTTP requests for sales rollups. All
// endpoints are admin-only.
type AnalyticsHandler struct {
	analytics service.AnalyticsService
	logger    *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analytics service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// RegisterRoutes registers analytics routes.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router, auth, admin func(http.Handler) http.Handler) {
	r.Route("/api/analytics", func(r chi.Router) {
		r.Use(auth)
		r.Use(admin)
		r.Get("/summary", h.Summary)
		r.Get("/top-products", h.TopProducts)
		r.Get("/categories", h.Categories)
		r.Get("/report", h.Report)
	})
}

// window resolves the reporting window from query parameters. Explicit
// start/end (RFC 3339) win over the named period.
func window(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	rawStart, rawEnd := q.Get("start"), q.Get("end")
	if rawStart != "" || rawEnd != "" {
		start, err := time.Parse(time.RFC3339, rawStart)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start")
		}
		end, err := time.Parse(time.RFC3339, rawEnd)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end")
		}
		return start, end, nil
	}

	start, end := service.ResolvePeriod(q.Get("period"), time.Now())
	return start, end, nil
}

// Summary returns order count, revenue and quantity for the window.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start, end, err := window(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.analytics.SalesSummary(r.Context(), start, end)
	if err != nil {
		h.respondAnalyticsError(w, err, "failed to compute sales summary")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// TopProducts returns the best sellers by revenue for the window.
func (h *AnalyticsHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	start, end, err := window(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	top, err := h.analytics.TopProducts(r.Context(), start, end, limit)
	if err != nil {
		h.respondAnalyticsError(w, err, "failed to compute top products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, top)
}

// Categories returns per-category revenue for the window.
func (h *AnalyticsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	start, end, err := window(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	categories, err := h.analytics.CategoryPerformance(r.Context(), start, end)
	if err != nil {
		h.respondAnalyticsError(w, err, "failed to compute category performance")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// Report bundles all rollups for the window.
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	start, end, err := window(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	report, err := h.analytics.Report(r.Context(), start, end, limit)
	if err != nil {
		h.respondAnalyticsError(w, err, "failed to build report")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, report)
}

func (h *AnalyticsHandler) respondAnalyticsError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, service.ErrInvalidPeriod) {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
}
