package domain

// Phase is the authoritative round phase, driven only by server events.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseBetting  Phase = "betting"
	PhaseRolling  Phase = "rolling"
	PhaseResult   Phase = "result"
	PhaseSettling Phase = "settling"
)

// Valid reports whether p is one of the five known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWaiting, PhaseBetting, PhaseRolling, PhaseResult, PhaseSettling:
		return true
	}
	return false
}

// AcceptsBets reports whether new stakes may be placed in this phase.
func (p Phase) AcceptsBets() bool { return p == PhaseBetting }

// Round is one bet-roll-result cycle, identified by its game number.
type Round struct {
	GameNumber string
	Phase      Phase
	Countdown  int
}
