package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile is an flock-held PID file that guarantees a single supervisor per
// directory. The lock is tied to the open descriptor, so it disappears with
// the process even after a crash.
//
// PIDFile is not safe for concurrent use.
type PIDFile struct {
	path string
	file *os.File
}

// NewPIDFile creates a new PIDFile manager for the given path
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the location of the PID file
func (p *PIDFile) Path() string {
	return p.path
}

// Create locks the PID file and writes the current PID into it.
// Returns ErrPIDFileLocked if another process holds the lock.
func (p *PIDFile) Create() error {
	f, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return ErrPIDFileLocked
		}
		return fmt.Errorf("locking PID file: %w", err)
	}

	if err := writePID(f, os.Getpid()); err != nil {
		unlock(f)
		return err
	}

	p.file = f
	return nil
}

func writePID(f *os.File, pid int) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating PID file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		return fmt.Errorf("writing PID: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing PID file: %w", err)
	}
	return nil
}

// unlock releases the lock and closes f without removing the file
func unlock(f *os.File) {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to unlock PID file: %v\n", err)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to close PID file: %v\n", err)
	}
}

// Release unlocks and removes the PID file
func (p *PIDFile) Release() error {
	if p.file == nil {
		return nil
	}

	_ = syscall.Flock(int(p.file.Fd()), syscall.LOCK_UN)
	_ = p.file.Close()
	p.file = nil

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing PID file: %w", err)
	}
	return nil
}

// IsLocked reports whether another process holds the PID file lock.
// A missing file is not locked.
func IsLocked(path string) bool {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err != nil {
		return true
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return false
}

// ReadPID reads the PID from a PID file
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing PID: %w", err)
	}
	return pid, nil
}

// ProcessExists checks if a process with the given PID exists
func ProcessExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	// Signal 0 probes without delivering; EPERM still means the process exists
	err := syscall.Kill(pid, syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
