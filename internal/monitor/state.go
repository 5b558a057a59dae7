package monitor

import "fmt"

// State is the agent's lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateProcessing
	StateShuttingDown
	StateStopped
)

var stateNames = map[State]string{
	StateIdle:         "IDLE",
	StatePolling:      "POLLING",
	StateProcessing:   "PROCESSING",
	StateShuttingDown: "SHUTTING_DOWN",
	StateStopped:      "STOPPED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// transitions lists the allowed successors of each state. SHUTTING_DOWN is
// reachable from every non-terminal state and is handled in CanTransition.
var transitions = map[State][]State{
	StateIdle:         {StatePolling},
	StatePolling:      {StateProcessing, StateIdle},
	StateProcessing:   {StateIdle},
	StateShuttingDown: {StateStopped},
}

// CanTransition reports whether from → to is a legal state change.
func CanTransition(from, to State) bool {
	if from == StateStopped {
		return false
	}
	if to == StateShuttingDown {
		return from != StateShuttingDown
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
