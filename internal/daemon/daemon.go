package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// DetachEnvVar marks the re-executed background copy of the supervisor
const DetachEnvVar = "_RESPAWN_DETACHED"

// IsDetachedChild returns true if this process is the background copy
func IsDetachedChild() bool {
	return os.Getenv(DetachEnvVar) == "1"
}

// Detach re-executes the current binary with the same arguments in a new
// session, its output appended to the state directory's output file.
// It returns the background PID; the caller should then exit.
func Detach(dir string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("getting executable path: %w", err)
	}

	if err := EnsureStateDir(dir); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(OutputPath(dir), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return 0, fmt.Errorf("opening output file: %w", err)
	}
	defer out.Close()

	cmd := exec.Command(executable, os.Args[1:]...)
	cmd.Env = append(os.Environ(), DetachEnvVar+"=1")
	cmd.Stdin = nil
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting background supervisor: %w", err)
	}

	pid := cmd.Process.Pid
	// The background copy is not our child to wait on
	_ = cmd.Process.Release()
	return pid, nil
}

// IsRunning checks if a supervisor is running in the given directory.
// This is best effort: the process can stop right after the check.
func IsRunning(dir string) bool {
	if IsLocked(PIDPath(dir)) {
		return true
	}

	state, err := LoadState(dir)
	if err != nil {
		return false
	}
	return ProcessExists(state.PID)
}

// GetRunningState returns the state of a running supervisor.
// Returns ErrNotRunning if no supervisor is running.
func GetRunningState(dir string) (*State, error) {
	if !IsRunning(dir) {
		return nil, ErrNotRunning
	}
	return LoadState(dir)
}

// CleanupStaleFiles removes state left behind by a supervisor that died
// without cleaning up. Returns ErrAlreadyRunning if one is still alive.
func CleanupStaleFiles(dir string) error {
	if IsLocked(PIDPath(dir)) {
		return ErrAlreadyRunning
	}

	state, err := LoadState(dir)
	if err != nil {
		if err == ErrStateNotFound {
			return nil
		}
		return err
	}

	if ProcessExists(state.PID) {
		return ErrAlreadyRunning
	}
	return CleanupStateDir(dir)
}

// StopRunning sends SIGTERM to the supervisor running in dir.
// The supervisor forwards it to its child and exits once the child is gone.
func StopRunning(dir string) (*State, error) {
	state, err := GetRunningState(dir)
	if err != nil {
		return nil, err
	}
	if err := syscall.Kill(state.PID, syscall.SIGTERM); err != nil {
		return nil, fmt.Errorf("signaling supervisor %d: %w", state.PID, err)
	}
	return state, nil
}
