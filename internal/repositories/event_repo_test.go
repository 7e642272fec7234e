package repositories

import (
	"testing"
	"time"

	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBuildEventQuery_NoFilter(t *testing.T) {
	query, args := buildEventQuery(models.EventFilter{})

	assert.Equal(t, "SELECT "+eventColumns+" FROM production_events ORDER BY started_at ASC, id ASC", query)
	assert.Empty(t, args)
}

func TestBuildEventQuery_HistoryFilter(t *testing.T) {
	machineID := int64(7)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	query, args := buildEventQuery(models.EventFilter{
		MachineID: &machineID,
		Start:     &start,
		End:       &end,
		Order:     models.SortDescending,
	})

	assert.Contains(t, query, "WHERE machine_id = $1 AND started_at >= $2 AND (ended_at IS NULL OR ended_at <= $3)")
	assert.Contains(t, query, "ORDER BY started_at DESC, id DESC")
	assert.Equal(t, []any{machineID, start, end}, args)
}

func TestBuildEventQuery_EndOnlyKeepsOpenEvents(t *testing.T) {
	machineID := int64(1)
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	query, args := buildEventQuery(models.EventFilter{MachineID: &machineID, End: &end})

	assert.Contains(t, query, "(ended_at IS NULL OR ended_at <= $2)")
	assert.NotContains(t, query, "started_at >=")
	assert.Len(t, args, 2)
}

func TestBuildEventQuery_SeriesWindow(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(14 * 24 * time.Hour)

	query, args := buildEventQuery(models.EventFilter{
		Start:         &since,
		StartedBefore: &until,
	})

	assert.Contains(t, query, "WHERE started_at >= $1 AND started_at <= $2 ORDER BY")
	assert.Equal(t, []any{since, until}, args)
}
