package models

// MachineStatus is the live status snapshot of one machine
type MachineStatus struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Location      *string `json:"location"`
	Status        string  `json:"status"`
	StopReason    *string `json:"stop_reason"`
	LastStartedAt *string `json:"last_started_at"`
	LastEndedAt   *string `json:"last_ended_at"`
	LastQuantity  int64   `json:"last_quantity"`
}

// Summary aggregates production over a trailing window. Durations are in fractional days.
type Summary struct {
	TotalStock             int64            `json:"total_stock"`
	TotalOperatingTimeDays float64          `json:"total_operating_time_days"`
	TotalStoppedTimeDays   float64          `json:"total_stopped_time_days"`
	ProducedQty            int64            `json:"produced_qty"`
	StopReasons            map[string]int64 `json:"stop_reasons"`
}

// Series is a sparse day-bucketed series; Labels and Values are index aligned
type Series struct {
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}

// TimeSeries holds the produced-quantity and stop-count series for the dashboard
type TimeSeries struct {
	Produced Series `json:"produced"`
	Stops    Series `json:"stops"`
}
