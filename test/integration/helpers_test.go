package integration

import (
	"encoding/json"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// runState mirrors the fields of the state file the tests look at
type runState struct {
	PID      int    `json:"pid"`
	ChildPID int    `json:"child_pid"`
	RunID    string `json:"run_id"`
	Target   string `json:"target"`
	Restarts int    `json:"restarts"`
	APIAddr  string `json:"api_addr"`
}

// buildBinary builds the respawn binary and returns its path
func buildBinary(t *testing.T) string {
	t.Helper()

	// Get project root (two directories up from test/integration)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	projectRoot := filepath.Join(wd, "..", "..")

	binary := filepath.Join(t.TempDir(), "respawn")

	cmd := exec.Command("go", "build", "-o", binary, "./cmd/respawn")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, output)
	}

	return binary
}

// writeConfig writes respawn.yaml into dir
func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "respawn.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

// statePath returns the state file respawn keeps in dir
func statePath(dir string) string {
	return filepath.Join(dir, ".respawn", "respawn.state")
}

// waitForStateFile waits until the state file exists
func waitForStateFile(t *testing.T, path string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("state file %s was not created within %v", path, timeout)
}

// waitForState polls the state file until cond accepts it
func waitForState(t *testing.T, dir string, timeout time.Duration, cond func(runState) bool) runState {
	t.Helper()

	var last runState
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(statePath(dir))
		if err == nil && json.Unmarshal(data, &last) == nil && cond(last) {
			return last
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("state did not reach the expected condition within %v (last: %+v)", timeout, last)
	return last
}

// waitForRemoval waits until path no longer exists
func waitForRemoval(t *testing.T, path string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("%s was not removed within %v", path, timeout)
}

// waitForAPI waits for the API to be ready
func waitForAPI(t *testing.T, addr string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(addr + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("API did not become ready within %v", timeout)
}

// stopRespawn runs `respawn stop` in dir, ignoring failures
func stopRespawn(binary, dir string) {
	cmd := exec.Command(binary, "stop", "--timeout", "10s")
	cmd.Dir = dir
	_ = cmd.Run()
}

// requireNoError fails the test if err is not nil
func requireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// skipShort skips the test if -short flag is provided
func skipShort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
