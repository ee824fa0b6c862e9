package runner

// State is a step of the run state machine.
type State int

const (
	StateIdle State = iota
	StateAwaitingConfirmation
	StateSelecting
	StatePurging
	StateReporting
	StateDone
	StateAborted
)

var stateNames = [...]string{
	StateIdle:                 "idle",
	StateAwaitingConfirmation: "awaiting-confirmation",
	StateSelecting:            "selecting",
	StatePurging:              "purging",
	StateReporting:            "reporting",
	StateDone:                 "done",
	StateAborted:              "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
