package domain

import (
	"fmt"
	"time"
)

// Phase identifies which step of the supervision loop produced an event
type Phase string

const (
	// PhaseStart is recorded once per spawn attempt
	PhaseStart Phase = "start"
	// PhaseExit is recorded when the child terminates
	PhaseExit Phase = "exit"
	// PhaseWait is recorded before the restart delay
	PhaseWait Phase = "wait"
)

// String returns the string representation of Phase
func (p Phase) String() string {
	return string(p)
}

// SupervisionEvent is one entry of the append-only supervision log.
// Events are values; once recorded they are never modified.
type SupervisionEvent struct {
	Timestamp time.Time           `json:"timestamp"`
	Phase     Phase               `json:"phase"`
	Target    string              `json:"target"`
	PID       int                 `json:"pid,omitempty"`
	Exit      *ExitClassification `json:"exit,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	Delay     time.Duration       `json:"delay,omitempty"`
	Err       string              `json:"error,omitempty"`
}

// StartEvent builds a start event. A non-nil err marks a failed spawn.
func StartEvent(ts time.Time, target string, pid int, err error) SupervisionEvent {
	ev := SupervisionEvent{
		Timestamp: ts,
		Phase:     PhaseStart,
		Target:    target,
		PID:       pid,
	}
	if err != nil {
		ev.PID = 0
		ev.Err = err.Error()
	}
	return ev
}

// ExitEvent builds an exit event for the given reason
func ExitEvent(ts time.Time, target string, pid int, reason ExitReason) SupervisionEvent {
	c := Classify(reason)
	return SupervisionEvent{
		Timestamp: ts,
		Phase:     PhaseExit,
		Target:    target,
		PID:       pid,
		Exit:      &c,
		Reason:    reason.String(),
	}
}

// WaitEvent builds a wait event for the given restart delay
func WaitEvent(ts time.Time, target string, delay time.Duration) SupervisionEvent {
	return SupervisionEvent{
		Timestamp: ts,
		Phase:     PhaseWait,
		Target:    target,
		Delay:     delay,
	}
}

// Failed reports whether the event records a spawn failure
func (e SupervisionEvent) Failed() bool {
	return e.Err != ""
}

// Message returns the free-form log text for the event
func (e SupervisionEvent) Message() string {
	switch e.Phase {
	case PhaseStart:
		if e.Failed() {
			return fmt.Sprintf("failed to start %s: %s", e.Target, e.Err)
		}
		return fmt.Sprintf("starting %s (pid %d)", e.Target, e.PID)
	case PhaseExit:
		if e.Exit == nil {
			return fmt.Sprintf("%s exited", e.Target)
		}
		return fmt.Sprintf("%s exited: %s (%s)", e.Target, e.Exit, e.Reason)
	case PhaseWait:
		return fmt.Sprintf("waiting %s before restart", e.Delay)
	default:
		return fmt.Sprintf("%s: %s", e.Phase, e.Target)
	}
}

// Line formats the event as "<timestamp>: <message>"
func (e SupervisionEvent) Line() string {
	return e.Timestamp.Format(time.RFC3339) + ": " + e.Message()
}

// EventFilter defines criteria for selecting supervision events
type EventFilter struct {
	Phases  []Phase // Restrict to these phases; empty means all
	Pattern string  // Substring that must appear in the event message
}

// IsEmpty returns true if no filters are set
func (f EventFilter) IsEmpty() bool {
	return len(f.Phases) == 0 && f.Pattern == ""
}

// MatchesPhase returns true if the phase passes the filter
func (f EventFilter) MatchesPhase(p Phase) bool {
	if len(f.Phases) == 0 {
		return true
	}
	for _, want := range f.Phases {
		if want == p {
			return true
		}
	}
	return false
}
