package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/BradenHooton/vectradex/internal/services"
	pkghttp "github.com/BradenHooton/vectradex/pkg/http"
)

// MetricsServiceInterface defines the dashboard aggregations
type MetricsServiceInterface interface {
	Summary(ctx context.Context, days int) (*models.Summary, error)
	TimeSeries(ctx context.Context, days int) (*models.TimeSeries, error)
}

type DashboardHandler struct {
	service MetricsServiceInterface
}

func NewDashboardHandler(service MetricsServiceInterface) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// queryDays reads ?days=, returning def when absent
func queryDays(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return def, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: days must be an integer", models.ErrValidation)
	}
	if err := services.ValidateDays(days); err != nil {
		return 0, err
	}
	return days, nil
}

// Metrics returns the production summary. Without ?days= the configured window applies.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	days, err := queryDays(r, 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, summary)
}

func (h *DashboardHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	days, err := queryDays(r, services.DefaultSeriesDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	series, err := h.service.TimeSeries(r.Context(), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, series)
}
