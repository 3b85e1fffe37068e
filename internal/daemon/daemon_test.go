package daemon

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestIsDetachedChild(t *testing.T) {
	t.Setenv(DetachEnvVar, "")
	if IsDetachedChild() {
		t.Error("expected false without env var")
	}

	t.Setenv(DetachEnvVar, "1")
	if !IsDetachedChild() {
		t.Error("expected true with env var set")
	}
}

func TestIsRunning(t *testing.T) {
	t.Run("false without state", func(t *testing.T) {
		if IsRunning(t.TempDir()) {
			t.Error("expected IsRunning to be false")
		}
	})

	t.Run("true when PID file is locked", func(t *testing.T) {
		dir := t.TempDir()
		if err := EnsureStateDir(dir); err != nil {
			t.Fatal(err)
		}
		pf := NewPIDFile(PIDPath(dir))
		if err := pf.Create(); err != nil {
			t.Fatal(err)
		}
		defer pf.Release()

		if !IsRunning(dir) {
			t.Error("expected IsRunning to be true")
		}
	})

	t.Run("true when state names a live process", func(t *testing.T) {
		dir := t.TempDir()
		state := &State{PID: os.Getpid(), Target: "./server"}
		if err := state.Write(dir); err != nil {
			t.Fatal(err)
		}
		if !IsRunning(dir) {
			t.Error("expected IsRunning to be true")
		}
	})

	t.Run("false when state names a dead process", func(t *testing.T) {
		dir := t.TempDir()
		state := &State{PID: 4000000, Target: "./server"}
		if err := state.Write(dir); err != nil {
			t.Fatal(err)
		}
		if IsRunning(dir) {
			t.Error("expected IsRunning to be false")
		}
	})
}

func TestGetRunningState(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		if _, err := GetRunningState(t.TempDir()); err != ErrNotRunning {
			t.Errorf("expected ErrNotRunning, got %v", err)
		}
	})

	t.Run("running", func(t *testing.T) {
		dir := t.TempDir()
		state := &State{PID: os.Getpid(), Target: "./server", Restarts: 2}
		if err := state.Write(dir); err != nil {
			t.Fatal(err)
		}

		got, err := GetRunningState(dir)
		if err != nil {
			t.Fatalf("GetRunningState failed: %v", err)
		}
		if got.Restarts != 2 {
			t.Errorf("Restarts = %d, want 2", got.Restarts)
		}
	})
}

func TestCleanupStaleFiles(t *testing.T) {
	t.Run("nothing to clean", func(t *testing.T) {
		if err := CleanupStaleFiles(t.TempDir()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("removes files of a dead supervisor", func(t *testing.T) {
		dir := t.TempDir()
		state := &State{PID: 4000000, Target: "./server"}
		if err := state.Write(dir); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(PIDPath(dir), []byte("4000000\n"), 0600); err != nil {
			t.Fatal(err)
		}

		if err := CleanupStaleFiles(dir); err != nil {
			t.Fatalf("CleanupStaleFiles failed: %v", err)
		}
		if _, err := os.Stat(StatePath(dir)); !os.IsNotExist(err) {
			t.Error("state file should be removed")
		}
	})

	t.Run("refuses while locked", func(t *testing.T) {
		dir := t.TempDir()
		if err := EnsureStateDir(dir); err != nil {
			t.Fatal(err)
		}
		pf := NewPIDFile(PIDPath(dir))
		if err := pf.Create(); err != nil {
			t.Fatal(err)
		}
		defer pf.Release()

		if err := CleanupStaleFiles(dir); err != ErrAlreadyRunning {
			t.Errorf("expected ErrAlreadyRunning, got %v", err)
		}
	})

	t.Run("refuses while process alive", func(t *testing.T) {
		dir := t.TempDir()
		state := &State{PID: os.Getpid(), Target: "./server"}
		if err := state.Write(dir); err != nil {
			t.Fatal(err)
		}
		if err := CleanupStaleFiles(dir); err != ErrAlreadyRunning {
			t.Errorf("expected ErrAlreadyRunning, got %v", err)
		}
	})
}

func TestStopRunning(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		if _, err := StopRunning(t.TempDir()); err != ErrNotRunning {
			t.Errorf("expected ErrNotRunning, got %v", err)
		}
	})

	t.Run("signals the recorded supervisor", func(t *testing.T) {
		cmd := exec.Command("/bin/sh", "-c", "sleep 30")
		if err := cmd.Start(); err != nil {
			t.Fatal(err)
		}
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		dir := t.TempDir()
		state := &State{PID: cmd.Process.Pid, Target: "./server"}
		if err := state.Write(dir); err != nil {
			t.Fatal(err)
		}

		got, err := StopRunning(dir)
		if err != nil {
			t.Fatalf("StopRunning failed: %v", err)
		}
		if got.PID != cmd.Process.Pid {
			t.Errorf("PID = %d", got.PID)
		}

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = cmd.Process.Kill()
			t.Fatal("process was not stopped")
		}
	})
}
