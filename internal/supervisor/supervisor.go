package supervisor

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charliek/respawn/internal/constants"
	"github.com/charliek/respawn/internal/domain"
)

// SupervisorConfig holds configuration for the supervisor
type SupervisorConfig struct {
	Process         domain.ProcessConfig
	RestartDelay    time.Duration // Fixed pause between an exit and the next start
	ShutdownTimeout time.Duration // Grace period for the child once supervision stops
}

// DefaultSupervisorConfig returns default configuration
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		RestartDelay:    constants.DefaultRestartDelay,
		ShutdownTimeout: constants.DefaultShutdownTimeout,
	}
}

// Recorder receives every supervision event in order
type Recorder interface {
	Record(event domain.SupervisionEvent)
}

// RecorderFunc adapts a function to the Recorder interface
type RecorderFunc func(event domain.SupervisionEvent)

// Record calls f(event)
func (f RecorderFunc) Record(event domain.SupervisionEvent) {
	f(event)
}

// MultiRecorder fans events out to several recorders in order
type MultiRecorder []Recorder

// Record passes the event to each recorder
func (m MultiRecorder) Record(event domain.SupervisionEvent) {
	for _, r := range m {
		if r != nil {
			r.Record(event)
		}
	}
}

// Supervisor keeps exactly one instance of the target running.
// Every exit, whatever its classification, is followed by a restart after
// the fixed delay. There is no backoff and no retry limit.
type Supervisor struct {
	mu sync.RWMutex

	// config holds the target and timing settings
	config SupervisorConfig
	// runner handles the actual process execution (can be mocked for testing)
	runner ProcessRunner
	// recorder receives start, exit and wait events
	recorder Recorder
	// runID identifies this supervisor invocation
	runID string

	state     domain.SupervisorState
	running   bool
	process   Process
	pid       int
	startedAt time.Time
	attempts  int
	lastExit  *domain.ExitClassification
	// forwarded is set once a signal has been relayed to the current child
	forwarded bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new supervisor
func New(config SupervisorConfig, runner ProcessRunner, recorder Recorder) *Supervisor {
	if runner == nil {
		runner = NewExecRunner()
	}
	if recorder == nil {
		recorder = MultiRecorder(nil)
	}
	if config.RestartDelay < 0 {
		config.RestartDelay = 0
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = constants.DefaultShutdownTimeout
	}

	return &Supervisor{
		config:   config,
		runner:   runner,
		recorder: recorder,
		runID:    uuid.NewString(),
		state:    domain.SupervisorStateIdle,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// RunID returns the identifier of this supervisor invocation
func (s *Supervisor) RunID() string {
	return s.runID
}

// Run supervises the target until ctx is cancelled. It never returns on its
// own; on cancellation the current child is asked to stop (and killed after
// the shutdown timeout) before Run returns ctx.Err().
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return domain.ErrSupervisorRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.state = domain.SupervisorStateIdle
		s.mu.Unlock()
	}()

	target := s.config.Process.Target
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.runOnce(ctx)

		if err := ctx.Err(); err != nil {
			return err
		}

		s.setState(domain.SupervisorStateWaiting)
		s.recorder.Record(domain.WaitEvent(s.now(), target, s.config.RestartDelay))
		if err := s.sleep(ctx, s.config.RestartDelay); err != nil {
			return err
		}
	}
}

// runOnce spawns the child, waits for it and records the start and exit events.
// A spawn failure records a failed start event and returns.
func (s *Supervisor) runOnce(ctx context.Context) {
	target := s.config.Process.Target
	startedAt := s.now()

	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()

	proc, err := s.runner.Start(ctx, s.config.Process)
	if err != nil {
		s.recorder.Record(domain.StartEvent(startedAt, target, 0, err))
		return
	}

	pid := proc.PID()
	s.mu.Lock()
	s.process = proc
	s.pid = pid
	s.forwarded = false
	s.startedAt = startedAt
	s.state = domain.SupervisorStateRunning
	s.mu.Unlock()

	s.recorder.Record(domain.StartEvent(startedAt, target, pid, nil))

	reason := s.wait(ctx, proc)

	s.mu.Lock()
	s.state = domain.SupervisorStateClassifying
	s.process = nil
	s.pid = 0
	s.mu.Unlock()

	event := domain.ExitEvent(s.now(), target, pid, reason)

	s.mu.Lock()
	s.lastExit = event.Exit
	s.mu.Unlock()

	s.recorder.Record(event)
}

// wait blocks until the child exits. If ctx is cancelled first the child is
// stopped: SIGTERM unless a signal was already forwarded, then SIGKILL after
// the shutdown timeout.
func (s *Supervisor) wait(ctx context.Context, proc Process) domain.ExitReason {
	type result struct {
		reason domain.ExitReason
		err    error
	}
	done := make(chan result, 1)
	go func() {
		reason, err := proc.Wait()
		done <- result{reason, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		s.mu.RLock()
		forwarded := s.forwarded
		s.mu.RUnlock()

		if !forwarded {
			_ = proc.Signal(sigterm)
		}

		timer := time.NewTimer(s.config.ShutdownTimeout)
		select {
		case res = <-done:
		case <-timer.C:
			_ = proc.Signal(sigkill)
			res = <-done
		}
		timer.Stop()
	}

	if res.err != nil {
		// The status is unknown; report it as an unexpected exit
		return domain.ExitedWith(-1)
	}
	return res.reason
}

// Forward relays sig to the current child's process group.
// Returns ErrNoChild when no child is alive (for example during the restart delay).
func (s *Supervisor) Forward(sig os.Signal) error {
	s.mu.Lock()
	proc := s.process
	if proc == nil {
		s.mu.Unlock()
		return domain.ErrNoChild
	}
	s.forwarded = true
	s.mu.Unlock()

	return proc.Signal(sig)
}

// Status returns a snapshot of the supervisor
func (s *Supervisor) Status() domain.SupervisorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	restarts := s.attempts - 1
	if restarts < 0 {
		restarts = 0
	}

	status := domain.SupervisorStatus{
		RunID:    s.runID,
		State:    s.state,
		Target:   s.config.Process.Target,
		PID:      s.pid,
		Restarts: restarts,
	}
	if !s.startedAt.IsZero() {
		status.StartedAt = s.startedAt
	}
	if s.lastExit != nil {
		last := *s.lastExit
		status.LastExit = &last
	}
	return status
}

// Config returns the supervisor configuration
func (s *Supervisor) Config() SupervisorConfig {
	return s.config
}

func (s *Supervisor) setState(state domain.SupervisorState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// sleepContext pauses for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
