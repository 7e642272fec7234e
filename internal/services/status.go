package services

import (
	"time"

	"github.com/BradenHooton/vectradex/internal/models"
)

// DeriveStatus builds the status snapshot of machine from its most recent event.
// A nil event yields status unknown with zero quantity.
func DeriveStatus(machine *models.Machine, latest *models.ProductionEvent) models.MachineStatus {
	status := models.MachineStatus{
		ID:       machine.ID,
		Name:     machine.Name,
		Location: machine.Location,
		Status:   models.StatusUnknown,
	}
	if latest == nil {
		return status
	}

	status.Status = latest.Status
	status.LastQuantity = latest.Quantity
	status.LastStartedAt = formatTimestamp(&latest.StartedAt)
	status.LastEndedAt = formatTimestamp(latest.EndedAt)
	if latest.StopReason != nil {
		reason := string(*latest.StopReason)
		status.StopReason = &reason
	}
	return status
}

// LatestOf scans events for the one with the greatest start time, breaking ties on
// the highest id. O(n); the repository answers the same question with one indexed row.
func LatestOf(events []*models.ProductionEvent) *models.ProductionEvent {
	var latest *models.ProductionEvent
	for _, e := range events {
		if latest == nil ||
			e.StartedAt.After(latest.StartedAt) ||
			(e.StartedAt.Equal(latest.StartedAt) && e.ID > latest.ID) {
			latest = e
		}
	}
	return latest
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
