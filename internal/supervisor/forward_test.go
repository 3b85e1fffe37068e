package supervisor

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/respawn/internal/domain"
)

func TestForwardSignals(t *testing.T) {
	proc := newFakeProcess(11)
	proc.exitOn[syscall.SIGHUP] = domain.SignaledBy(syscall.SIGHUP)
	runner := &fakeRunner{next: func(n int) (Process, error) { return proc, nil }}

	started := make(chan struct{})
	log := &eventLog{onRec: func(e domain.SupervisionEvent) {
		if e.Phase == domain.PhaseStart {
			close(started)
		}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := New(SupervisorConfig{
		Process:         domain.ProcessConfig{Target: "fake"},
		RestartDelay:    time.Hour,
		ShutdownTimeout: time.Second,
	}, runner, log)

	received := make(chan os.Signal, 1)
	stop := ForwardSignals(sup, cancel, func(sig os.Signal) { received <- sig })
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run(ctx) }()
	<-started

	// SIGHUP is caught by ForwardSignals, so it does not terminate the test binary
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))

	select {
	case sig := <-received:
		assert.Equal(t, syscall.SIGHUP, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("signal was not observed")
	}

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after forwarded signal")
	}

	assert.Equal(t, []os.Signal{syscall.SIGHUP}, proc.Signals())
	assert.Equal(t, []domain.Phase{domain.PhaseStart, domain.PhaseExit}, log.Phases())
}

func TestForwardSignals_DuringWait(t *testing.T) {
	sup := New(SupervisorConfig{Process: domain.ProcessConfig{Target: "fake"}}, exitingProcesses([]int{0}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := ForwardSignals(sup, cancel, nil)
	defer stop()

	// No child: the signal still cancels supervision
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled")
	}
}
