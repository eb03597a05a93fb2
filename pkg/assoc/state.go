package assoc

import "strconv"

// Phase is the association phase of the station.
type Phase int

// Phases
const (
	Disconnected Phase = iota
	Connecting
	Connected
	Failed
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Failed:
		return "Failed"
	}
	return "Phase(" + strconv.Itoa(int(p)) + ")"
}

// State is a snapshot of the association state.
// Reason is set only when Phase is Failed.
type State struct {
	Phase  Phase
	Reason string
}

// String formats the state, e.g. "Failed(auth rejected)".
func (s State) String() string {
	if s.Phase == Failed {
		return "Failed(" + s.Reason + ")"
	}
	return s.Phase.String()
}

// IsConnected indicates the station is associated.
func (s State) IsConnected() bool {
	return s.Phase == Connected
}

// IsValid checks the state is one of the defined states.
func (s State) IsValid() bool {
	switch s.Phase {
	case Disconnected, Connecting, Connected:
		return s.Reason == ""
	case Failed:
		return s.Reason != ""
	}
	return false
}

// StateObserver is notified on every state transition, in order and
// outside the supervisor lock. It may call back into the Supervisor.
type StateObserver interface {
	StateChanged(State)
}

// StateChangedFunc is func type of StateObserver.
type StateChangedFunc func(State)

// StateChanged implements StateObserver.
func (f StateChangedFunc) StateChanged(s State) {
	f(s)
}
