package models

import "time"

// Event statuses
const (
	StatusOperating = "operating"
	StatusStopped   = "stopped"

	// StatusUnknown is reported for machines without any recorded event
	StatusUnknown = "unknown"
)

// StopReason classifies why a machine stopped
type StopReason string

const (
	StopReasonMaterialShortage StopReason = "falta_material"
	StopReasonMaintenance      StopReason = "manutencao"
	StopReasonElectricalFault  StopReason = "falha_eletrica"
	StopReasonSetup            StopReason = "setup"
	StopReasonQuality          StopReason = "qualidade"
)

// StopReasonNone is the histogram bucket for stopped events without a reason
const StopReasonNone = "none"

// StopReasons lists every accepted stop reason
var StopReasons = []StopReason{
	StopReasonMaterialShortage,
	StopReasonMaintenance,
	StopReasonElectricalFault,
	StopReasonSetup,
	StopReasonQuality,
}

// Valid reports whether r is one of the known stop reasons
func (r StopReason) Valid() bool {
	for _, known := range StopReasons {
		if r == known {
			return true
		}
	}
	return false
}

// Machine is a piece of shop-floor equipment that owns production events
type Machine struct {
	ID       int64
	Name     string
	Location *string
}

// ProductionEvent records a period in which a machine was operating or stopped.
// EndedAt is nil while the period is still open.
type ProductionEvent struct {
	ID         int64
	MachineID  int64
	StartedAt  time.Time
	EndedAt    *time.Time
	Status     string
	StopReason *StopReason
	Quantity   int64
}

// IsOpen reports whether the event has no end time yet
func (e *ProductionEvent) IsOpen() bool {
	return e.EndedAt == nil
}

// SortOrder controls the ordering of queried events by start time
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// EventFilter narrows an event query.
//
// Start keeps events with StartedAt >= Start. End keeps events that are still
// open or whose EndedAt <= End. StartedBefore keeps events with StartedAt <= StartedBefore.
type EventFilter struct {
	MachineID     *int64
	Start         *time.Time
	End           *time.Time
	StartedBefore *time.Time
	Order         SortOrder
}
