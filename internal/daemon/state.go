package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charliek/respawn/internal/domain"
)

const (
	// StateDirName is the name of the directory storing runtime state
	StateDirName = ".respawn"
	// StateFileName is the name of the state file
	StateFileName = "respawn.state"
	// PIDFileName is the name of the PID file
	PIDFileName = "respawn.pid"
	// OutputFileName receives the supervisor's and child's output when detached
	OutputFileName = "respawn.out"
)

// State is the runtime state of a running supervisor, read by `respawn status`
type State struct {
	PID        int       `json:"pid"`
	ChildPID   int       `json:"child_pid"`
	RunID      string    `json:"run_id"`
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	Restarts   int       `json:"restarts"`
	APIAddr    string    `json:"api_addr,omitempty"`
	LogFile    string    `json:"log_file,omitempty"`
	ConfigFile string    `json:"config_file,omitempty"`
}

// Write writes the state file into the state directory under dir.
// The file is replaced atomically so readers never see a partial write.
func (s *State) Write(dir string) error {
	if s.PID <= 0 {
		return fmt.Errorf("invalid PID: %d", s.PID)
	}
	if s.Target == "" {
		return fmt.Errorf("target cannot be empty")
	}

	if err := EnsureStateDir(dir); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	statePath := StatePath(dir)
	tmp := statePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening state file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("syncing state file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing state file: %w", err)
	}

	if err := os.Rename(tmp, statePath); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// LoadState reads the state file from the state directory under dir
func LoadState(dir string) (*State, error) {
	data, err := os.ReadFile(StatePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}
	return &state, nil
}

// RemoveState removes the state file
func RemoveState(dir string) error {
	if err := os.Remove(StatePath(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}

// StateDir returns the path to the .respawn directory in dir.
// An empty dir means the working directory.
func StateDir(dir string) string {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return StateDirName
		}
	}
	return filepath.Join(dir, StateDirName)
}

// StatePath returns the full path to the state file
func StatePath(dir string) string {
	return filepath.Join(StateDir(dir), StateFileName)
}

// PIDPath returns the full path to the PID file
func PIDPath(dir string) string {
	return filepath.Join(StateDir(dir), PIDFileName)
}

// OutputPath returns the full path to the detached output file
func OutputPath(dir string) string {
	return filepath.Join(StateDir(dir), OutputFileName)
}

// EnsureStateDir creates the .respawn directory if it doesn't exist
func EnsureStateDir(dir string) error {
	if err := os.MkdirAll(StateDir(dir), 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// CleanupStateDir removes the state and PID files. The detached output file
// is kept for post-mortem reading.
func CleanupStateDir(dir string) error {
	if err := RemoveState(dir); err != nil {
		return err
	}
	if err := os.Remove(PIDPath(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing PID file: %w", err)
	}
	return nil
}

// Tracker keeps the state file in step with the supervision loop.
// It is used as a supervision event recorder.
type Tracker struct {
	mu    sync.Mutex
	dir   string
	state State

	attempts int
	// lastErr is the most recent write failure, reported once
	lastErr  error
	reported bool
	onError  func(error)
}

// NewTracker writes the initial state and returns a tracker for it.
// onError is called once for the first failed update; nil ignores failures.
func NewTracker(dir string, initial State, onError func(error)) (*Tracker, error) {
	t := &Tracker{dir: dir, state: initial, onError: onError}
	if err := t.state.Write(dir); err != nil {
		return nil, err
	}
	return t, nil
}

// Record updates the child PID and restart count from a supervision event
func (t *Tracker) Record(event domain.SupervisionEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Phase {
	case domain.PhaseStart:
		t.attempts++
		if t.attempts > 1 {
			t.state.Restarts = t.attempts - 1
		}
		t.state.ChildPID = event.PID
	case domain.PhaseExit:
		t.state.ChildPID = 0
	default:
		return
	}

	if err := t.state.Write(t.dir); err != nil {
		t.lastErr = err
		if !t.reported && t.onError != nil {
			t.reported = true
			t.onError(err)
		}
	}
}

// State returns a copy of the tracked state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the most recent write failure, if any
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}
