package daemon

import "errors"

var (
	// ErrStateNotFound is returned when no state file exists
	ErrStateNotFound = errors.New("state file not found")
	// ErrAlreadyRunning is returned when a supervisor already owns the directory
	ErrAlreadyRunning = errors.New("respawn is already running in this directory")
	// ErrNotRunning is returned when no supervisor is running
	ErrNotRunning = errors.New("respawn is not running")
	// ErrPIDFileLocked is returned when the PID file is locked by another process
	ErrPIDFileLocked = errors.New("PID file is locked by another process")
)
