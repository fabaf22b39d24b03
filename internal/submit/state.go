package submit

import "fmt"

// State is the lifecycle state of one form.
type State int

const (
	Idle State = iota
	Sending
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists the allowed successors of every state. Succeeded and
// Failed are display states that re-arm to Idle on the next interaction.
var transitions = map[State][]State{
	Idle:      {Sending},
	Sending:   {Succeeded, Failed},
	Succeeded: {Idle},
	Failed:    {Idle},
}

// CanTransition reports whether the state machine allows s -> to.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Status is the current state plus, for Failed, the reason shown to the user.
type Status struct {
	State  State
	Reason string
}
