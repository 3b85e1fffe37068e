package domain

import "time"

// SupervisorState represents where the supervision loop currently is.
// The loop cycles Running -> Classifying -> Waiting -> Running and has no terminal state.
type SupervisorState string

const (
	// SupervisorStateIdle is the state before the first spawn and after Run returns
	SupervisorStateIdle SupervisorState = "idle"
	// SupervisorStateRunning indicates a child is alive
	SupervisorStateRunning SupervisorState = "running"
	// SupervisorStateClassifying indicates the child exited and the exit is being recorded
	SupervisorStateClassifying SupervisorState = "classifying"
	// SupervisorStateWaiting indicates the restart delay is in progress
	SupervisorStateWaiting SupervisorState = "waiting"
)

// String returns the string representation of SupervisorState
func (s SupervisorState) String() string {
	return string(s)
}

// IsRunning returns true if a child is alive
func (s SupervisorState) IsRunning() bool {
	return s == SupervisorStateRunning
}

// SupervisorStatus is a point-in-time snapshot of the supervisor
type SupervisorStatus struct {
	RunID     string              `json:"run_id"`
	State     SupervisorState     `json:"state"`
	Target    string              `json:"target"`
	PID       int                 `json:"pid"`
	Restarts  int                 `json:"restarts"`
	StartedAt time.Time           `json:"started_at,omitempty"`
	LastExit  *ExitClassification `json:"last_exit,omitempty"`
}

// UptimeSeconds returns the number of seconds the current child has been running
func (s SupervisorStatus) UptimeSeconds() int64 {
	if s.StartedAt.IsZero() || !s.State.IsRunning() {
		return 0
	}
	return int64(time.Since(s.StartedAt).Seconds())
}

// ProcessConfig defines the child the supervisor keeps alive
type ProcessConfig struct {
	Target string
	Args   []string
	Env    map[string]string
	Dir    string
}

// CommandLine returns the target followed by its arguments
func (c ProcessConfig) CommandLine() []string {
	return append([]string{c.Target}, c.Args...)
}
