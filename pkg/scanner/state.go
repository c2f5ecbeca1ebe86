package scanner

import "fmt"

// State is the phase of a scan.
type State int

const (
	StateIdle State = iota
	StatePermissionPending
	StateDenied
	StatePermissionGranted
	StateSessionActive
	StateResultPublished
	StateCancelled
	StateFailed
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StatePermissionPending: "permissionPending",
	StateDenied:            "denied",
	StatePermissionGranted: "permissionGranted",
	StateSessionActive:     "sessionActive",
	StateResultPublished:   "resultPublished",
	StateCancelled:         "cancelled",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether the scan has ended in s.
func (s State) Terminal() bool {
	switch s {
	case StateDenied, StateResultPublished, StateCancelled, StateFailed:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// transitions lists the legal successors of each state. A terminal state
// may only restart a scan.
var transitions = map[State][]State{
	StateIdle:              {StatePermissionPending},
	StatePermissionPending: {StateDenied, StatePermissionGranted},
	StatePermissionGranted: {StateSessionActive, StateFailed},
	StateSessionActive:     {StateResultPublished, StateCancelled, StateFailed},
	StateDenied:            {StatePermissionPending},
	StateResultPublished:   {StatePermissionPending},
	StateCancelled:         {StatePermissionPending},
	StateFailed:            {StatePermissionPending},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
