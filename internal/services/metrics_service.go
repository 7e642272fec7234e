package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/BradenHooton/vectradex/internal/clock"
	"github.com/BradenHooton/vectradex/internal/models"
)

const (
	MinSeriesDays     = 1
	MaxSeriesDays     = 90
	DefaultSeriesDays = 14

	dateLabelLayout = "2006-01-02"
	hoursPerDay     = 24.0
)

// ProductRepository reads the inventory collaborator
type ProductRepository interface {
	TotalStock(ctx context.Context) (int64, error)
}

// MetricsService computes dashboard aggregates from the event log on every call
type MetricsService struct {
	events        EventRepository
	products      ProductRepository
	clock         clock.Clock
	summaryWindow time.Duration
	logger        *slog.Logger
}

func NewMetricsService(events EventRepository, products ProductRepository, clk clock.Clock, summaryWindow time.Duration, logger *slog.Logger) *MetricsService {
	return &MetricsService{
		events:        events,
		products:      products,
		clock:         clk,
		summaryWindow: summaryWindow,
		logger:        logger,
	}
}

// ValidateDays checks a trailing window length in days
func ValidateDays(days int) error {
	if days < MinSeriesDays || days > MaxSeriesDays {
		return fmt.Errorf("%w: days must be between %d and %d", models.ErrValidation, MinSeriesDays, MaxSeriesDays)
	}
	return nil
}

// Summary aggregates events started inside the trailing window. days of 0 selects the configured window.
// Open events count up to the current time, so the result is a snapshot.
func (s *MetricsService) Summary(ctx context.Context, days int) (*models.Summary, error) {
	window := s.summaryWindow
	if days != 0 {
		if err := ValidateDays(days); err != nil {
			return nil, err
		}
		window = time.Duration(days) * 24 * time.Hour
	}

	now := s.clock.Now()
	windowStart := now.Add(-window)

	events, err := s.events.Query(ctx, models.EventFilter{Start: &windowStart})
	if err != nil {
		s.logger.Error("failed to query events for summary", slog.Any("error", err))
		return nil, fmt.Errorf("query summary events: %w", err)
	}

	stock, err := s.products.TotalStock(ctx)
	if err != nil {
		s.logger.Error("failed to read total stock", slog.Any("error", err))
		return nil, fmt.Errorf("read total stock: %w", err)
	}

	summary := Summarize(events, now, stock)
	return &summary, nil
}

// TimeSeries returns the sparse per-day series for the trailing days
func (s *MetricsService) TimeSeries(ctx context.Context, days int) (*models.TimeSeries, error) {
	if err := ValidateDays(days); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	start := now.Add(-time.Duration(days) * 24 * time.Hour)

	events, err := s.events.Query(ctx, models.EventFilter{Start: &start, StartedBefore: &now})
	if err != nil {
		s.logger.Error("failed to query events for time series", slog.Int("days", days), slog.Any("error", err))
		return nil, fmt.Errorf("query time series events: %w", err)
	}

	series := BuildTimeSeries(events)
	return &series, nil
}

// Summarize totals durations in fractional days, with open events running until now.
// Each event contributes at least zero.
func Summarize(events []*models.ProductionEvent, now time.Time, totalStock int64) models.Summary {
	summary := models.Summary{
		TotalStock:  totalStock,
		StopReasons: make(map[string]int64),
	}

	for _, e := range events {
		end := now
		if !e.IsOpen() {
			end = *e.EndedAt
		}
		days := end.Sub(e.StartedAt).Hours() / hoursPerDay
		if days < 0 {
			days = 0
		}

		switch e.Status {
		case models.StatusOperating:
			summary.TotalOperatingTimeDays += days
		case models.StatusStopped:
			summary.TotalStoppedTimeDays += days
			reason := models.StopReasonNone
			if e.StopReason != nil {
				reason = string(*e.StopReason)
			}
			summary.StopReasons[reason]++
		}

		summary.ProducedQty += e.Quantity
	}

	return summary
}

// BuildTimeSeries buckets events by the UTC date of their start. Days without events
// are omitted and labels ascend.
func BuildTimeSeries(events []*models.ProductionEvent) models.TimeSeries {
	produced := make(map[string]int64)
	stops := make(map[string]int64)

	for _, e := range events {
		label := e.StartedAt.UTC().Format(dateLabelLayout)
		produced[label] += e.Quantity
		if e.Status == models.StatusStopped {
			stops[label]++
		}
	}

	return models.TimeSeries{
		Produced: toSeries(produced),
		Stops:    toSeries(stops),
	}
}

func toSeries(buckets map[string]int64) models.Series {
	series := models.Series{
		Labels: make([]string, 0, len(buckets)),
		Values: make([]int64, 0, len(buckets)),
	}
	for label := range buckets {
		series.Labels = append(series.Labels, label)
	}
	// YYYY-MM-DD sorts lexically in date order
	sort.Strings(series.Labels)
	for _, label := range series.Labels {
		series.Values = append(series.Values, buckets[label])
	}
	return series
}
