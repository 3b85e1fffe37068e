// Package supervisor keeps a single child process alive: it starts the
// target, waits for it to exit, classifies the exit, records the event and
// restarts it after a fixed delay, forever.
//
// The target is executed directly, not through a shell, in its own process
// group. Termination signals received by the supervisor are forwarded to that
// group so the child is never orphaned.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/charliek/respawn/internal/domain"
)

// ProcessRunner creates and starts processes
type ProcessRunner interface {
	Start(ctx context.Context, config domain.ProcessConfig) (Process, error)
}

// Process represents a running process
type Process interface {
	PID() int
	// Wait blocks until the process exits. The error is only set when the
	// exit status could not be obtained at all.
	Wait() (domain.ExitReason, error)
	Signal(sig os.Signal) error
}

// ExecRunner implements ProcessRunner using os/exec
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner creates an ExecRunner whose children inherit the supervisor's stdio
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Start starts a new process.
//
// exec.CommandContext is deliberately not used: cancelling ctx must not kill
// the child outright, the supervisor signals it and waits instead.
func (r *ExecRunner) Start(ctx context.Context, config domain.ProcessConfig) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.Target == "" {
		return nil, fmt.Errorf("starting process: empty target")
	}

	cmd := exec.Command(config.Target, config.Args...)
	cmd.Dir = config.Dir
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	// Later entries win, so configured values override the inherited environment
	cmd.Env = os.Environ()
	for k, v := range config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// Own process group so signals reach grandchildren too
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting process: %w", err)
	}

	return &execProcess{cmd: cmd}, nil
}

// execProcess wraps exec.Cmd to implement Process interface
type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() (domain.ExitReason, error) {
	return exitReason(p.cmd.Wait())
}

func (p *execProcess) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}

	sysSig, ok := sig.(syscall.Signal)
	if !ok {
		return p.cmd.Process.Signal(sig)
	}

	// Signal the entire process group
	pgid, err := syscall.Getpgid(p.cmd.Process.Pid)
	if err != nil {
		// Fall back to signalling just the process
		return p.cmd.Process.Signal(sig)
	}

	return syscall.Kill(-pgid, sysSig)
}

// exitReason converts the error returned by exec.Cmd.Wait into an ExitReason.
// A signal death is reported as the signal rather than a 128+N code.
func exitReason(err error) (domain.ExitReason, error) {
	if err == nil {
		return domain.ExitedWith(0), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return domain.ExitReason{}, fmt.Errorf("waiting for process: %w", err)
	}

	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			return domain.SignaledBy(status.Signal()), nil
		}
		return domain.ExitedWith(status.ExitStatus()), nil
	}

	return domain.ExitedWith(exitErr.ExitCode()), nil
}
