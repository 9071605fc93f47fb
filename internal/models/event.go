package models

import "github.com/google/uuid"

// EventRecord is one persisted row of a run's event log: the storage
// counterpart of simcore.EventRecord, keyed to its owning run.
type EventRecord struct {
	RunID uuid.UUID `json:"runId" db:"run_id"`

	EventID        int      `json:"eventId" db:"event_id"`
	NodeID         int      `json:"nodeId" db:"node_id"`
	InitialX       float64  `json:"initialX" db:"initial_x"`
	InitialY       float64  `json:"initialY" db:"initial_y"`
	FinalX         float64  `json:"finalX" db:"final_x"`
	FinalY         float64  `json:"finalY" db:"final_y"`
	InitialSF      int      `json:"initialSF" db:"initial_sf"`
	FinalSF        int      `json:"finalSF" db:"final_sf"`
	InitialTxPower float64  `json:"initialTxPower" db:"initial_tx_power"`
	FinalTxPower   float64  `json:"finalTxPower" db:"final_tx_power"`
	StartTime      float64  `json:"startTime" db:"start_time"`
	EndTime        *float64 `json:"endTime,omitempty" db:"end_time"`
	EnergyJ        float64  `json:"energyJ" db:"energy_j"`
	Result         string   `json:"result" db:"result"`
	GatewayID      *int     `json:"gatewayId,omitempty" db:"gateway_id"`
}

// EventLevel classifies a structured log line emitted while a run
// executes. It is not persisted, and no code in this module references it.
type EventLevel string

const (
	EventLevelDebug EventLevel = "DEBUG"
	EventLevelInfo  EventLevel = "INFO"
	EventLevelWarn  EventLevel = "WARN"
	EventLevelError EventLevel = "ERROR"
)
