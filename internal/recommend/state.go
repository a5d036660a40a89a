package recommend

import "time"

// State is a pipeline stage of one recommendation call.
type State string

const (
	StateIdle       State = "idle"
	StateBuilding   State = "building"
	StateRequesting State = "requesting"
	StateExtracting State = "extracting"
	StateParsing    State = "parsing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StateEvent is emitted on every transition.
type StateEvent struct {
	RunID       string    `json:"run_id"`
	State       State     `json:"state"`
	At          time.Time `json:"at"`
	Records     int       `json:"records,omitempty"`
	BlockReason string    `json:"block_reason,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Observer receives state events synchronously and should return quickly.
type Observer func(StateEvent)
