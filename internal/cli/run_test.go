package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/respawn/internal/config"
	"github.com/charliek/respawn/internal/daemon"
)

// syncBuffer is a bytes.Buffer safe for the supervisor goroutine and the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestRunOptionsApply(t *testing.T) {
	t.Run("unset flags keep config values", func(t *testing.T) {
		cfg := config.Default()
		cfg.RestartDelay = "2s"
		cfg.Target = "./from-config"

		runOptions{delay: "9s"}.apply(cfg, changedSet(), nil)

		assert.Equal(t, "2s", cfg.RestartDelay)
		assert.Equal(t, "./from-config", cfg.Target)
	})

	t.Run("set flags override config", func(t *testing.T) {
		cfg := config.Default()
		opts := runOptions{
			delay:           "1s",
			logFile:         "/tmp/x.log",
			shutdownTimeout: "3s",
			envFile:         ".env.local",
			apiAddr:         "127.0.0.1:5556",
		}
		opts.apply(cfg, changedSet("delay", "log-file", "shutdown-timeout", "env-file", "api-addr"), nil)

		assert.Equal(t, "1s", cfg.RestartDelay)
		assert.Equal(t, "/tmp/x.log", cfg.LogFile)
		assert.Equal(t, "3s", cfg.ShutdownTimeout)
		assert.Equal(t, ".env.local", cfg.EnvFile)
		assert.Equal(t, "127.0.0.1:5556", cfg.API.Addr)
	})

	t.Run("positional target replaces config target and args", func(t *testing.T) {
		cfg := config.Default()
		cfg.Target = "./old"
		cfg.Args = []string{"--old"}

		runOptions{}.apply(cfg, changedSet(), []string{"./server", "--port", "8080"})

		assert.Equal(t, "./server", cfg.Target)
		assert.Equal(t, []string{"--port", "8080"}, cfg.Args)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "respawn.yaml")
		require.NoError(t, os.WriteFile(path, []byte("target: ./server\nrestart_delay: 1s\n"), 0644))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "./server", cfg.Target)
		assert.Equal(t, "1s", cfg.RestartDelay)
		assert.Equal(t, path, cfg.Path())
	})

	t.Run("missing explicit path is an error", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("no config in working directory gives defaults", func(t *testing.T) {
		chdirForTest(t, t.TempDir())

		cfg, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "5s", cfg.RestartDelay)
		assert.Equal(t, "respawn.log", cfg.LogFile)
		assert.Empty(t, cfg.Target)
	})
}

func TestSupervise(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "respawn.log")

	cfg := config.Default()
	cfg.Target = "/bin/sh"
	cfg.Args = []string{"-c", "exit 3"}
	cfg.RestartDelay = "20ms"
	cfg.LogFile = logFile
	cfg.API.Addr = "127.0.0.1:0"
	require.NoError(t, config.Validate(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	console := &syncBuffer{}

	done := make(chan error, 1)
	go func() { done <- supervise(ctx, cfg, dir, console) }()

	// While running, the state file describes this supervisor
	require.Eventually(t, func() bool {
		state, err := daemon.LoadState(dir)
		return err == nil && state.Restarts >= 2
	}, 5*time.Second, 10*time.Millisecond)

	state, err := daemon.LoadState(dir)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), state.PID)
	assert.Equal(t, "/bin/sh", state.Target)
	assert.NotEmpty(t, state.RunID)
	assert.NotEmpty(t, state.APIAddr)
	assert.Equal(t, logFile, state.LogFile)

	status, err := NewClient(state.APIAddr).GetStatus()
	require.NoError(t, err)
	assert.Equal(t, state.RunID, status.RunID)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervise did not return after cancel")
	}

	// Runtime state is removed on exit
	_, err = daemon.LoadState(dir)
	assert.ErrorIs(t, err, daemon.ErrStateNotFound)
	assert.NoFileExists(t, daemon.PIDPath(dir))

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "starting /bin/sh (pid ")
	assert.Contains(t, log, "/bin/sh exited: unexpected(3) (code 3)")
	assert.Contains(t, log, "waiting 20ms before restart")
	assert.Equal(t, log, console.String())

	// Every line is "<timestamp>: <message>"
	for _, line := range strings.Split(strings.TrimSpace(log), "\n") {
		ts, _, ok := strings.Cut(line, ": ")
		require.True(t, ok, line)
		_, err := time.Parse(time.RFC3339, ts)
		assert.NoError(t, err, line)
	}
}

func TestSupervise_AlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, daemon.EnsureStateDir(dir))

	held := daemon.NewPIDFile(daemon.PIDPath(dir))
	require.NoError(t, held.Create())
	defer held.Release()

	cfg := config.Default()
	cfg.Target = "/bin/true"
	cfg.LogFile = filepath.Join(dir, "respawn.log")

	err := supervise(context.Background(), cfg, dir, &syncBuffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

// chdirForTest changes the working directory for the duration of the test
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
