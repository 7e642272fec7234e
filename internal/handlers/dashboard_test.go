package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/BradenHooton/vectradex/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestDashboardHandler_Metrics(t *testing.T) {
	t.Run("default window", func(t *testing.T) {
		gotDays := -1
		svc := &MockMetricsService{
			SummaryFunc: func(ctx context.Context, days int) (*models.Summary, error) {
				gotDays = days
				return &models.Summary{
					TotalStock:             40,
					TotalOperatingTimeDays: 0.0625,
					ProducedQty:            120,
					StopReasons:            map[string]int64{"setup": 1},
				}, nil
			},
		}
		h := NewDashboardHandler(svc)
		w := httptest.NewRecorder()
		h.Metrics(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, gotDays)
		assert.JSONEq(t, `{"total_stock":40,"total_operating_time_days":0.0625,"total_stopped_time_days":0,
			"produced_qty":120,"stop_reasons":{"setup":1}}`, w.Body.String())
	})

	t.Run("explicit days", func(t *testing.T) {
		gotDays := -1
		svc := &MockMetricsService{
			SummaryFunc: func(ctx context.Context, days int) (*models.Summary, error) {
				gotDays = days
				return &models.Summary{StopReasons: map[string]int64{}}, nil
			},
		}
		h := NewDashboardHandler(svc)
		w := httptest.NewRecorder()
		h.Metrics(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/metrics?days=30", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 30, gotDays)
	})

	t.Run("days out of range", func(t *testing.T) {
		h := NewDashboardHandler(&MockMetricsService{})
		w := httptest.NewRecorder()
		h.Metrics(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/metrics?days=0", nil))

		AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
	})
}

func TestDashboardHandler_TimeSeries(t *testing.T) {
	t.Run("defaults to fourteen days", func(t *testing.T) {
		gotDays := 0
		svc := &MockMetricsService{
			TimeSeriesFunc: func(ctx context.Context, days int) (*models.TimeSeries, error) {
				gotDays = days
				return &models.TimeSeries{
					Produced: models.Series{Labels: []string{}, Values: []int64{}},
					Stops:    models.Series{Labels: []string{}, Values: []int64{}},
				}, nil
			},
		}
		h := NewDashboardHandler(svc)
		w := httptest.NewRecorder()
		h.TimeSeries(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/timeseries", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, services.DefaultSeriesDays, gotDays)
		assert.JSONEq(t, `{"produced":{"labels":[],"values":[]},"stops":{"labels":[],"values":[]}}`, w.Body.String())
	})

	tests := []struct {
		name  string
		query string
	}{
		{"zero", "?days=0"},
		{"above max", "?days=91"},
		{"negative", "?days=-3"},
		{"not a number", "?days=week"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDashboardHandler(&MockMetricsService{})
			w := httptest.NewRecorder()
			h.TimeSeries(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/timeseries"+tt.query, nil))

			AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}
