package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/respawn/internal/api"
	"github.com/charliek/respawn/internal/daemon"
	"github.com/charliek/respawn/internal/domain"
	"github.com/charliek/respawn/internal/logs"
)

func testState() *daemon.State {
	return &daemon.State{
		PID:       1234,
		ChildPID:  5678,
		RunID:     "run-abc",
		Target:    "./server",
		StartedAt: time.Now().Add(-90 * time.Second),
		Restarts:  2,
		APIAddr:   "127.0.0.1:5556",
		LogFile:   "respawn.log",
	}
}

func TestPrintStatus_Table(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStatus(&out, testState(), nil, false))

	s := out.String()
	for _, want := range []string{"./server", "1234", "5678", "run-abc", "respawn.log", "http://127.0.0.1:5556", "1m"} {
		assert.Contains(t, s, want)
	}
	assert.NotContains(t, s, "Last exit")
}

func TestPrintStatus_Live(t *testing.T) {
	killed := domain.ClassifyCode(137)
	live := &api.StatusResponse{
		State:        "waiting",
		LastExit:     &killed,
		RestartDelay: "5s",
		Log:          logs.Stats{BufferedEvents: 9, TotalEvents: 9},
	}

	var out bytes.Buffer
	require.NoError(t, printStatus(&out, testState(), live, false))

	s := out.String()
	assert.Contains(t, s, "waiting")
	assert.Contains(t, s, "killed")
	assert.Contains(t, s, "9 buffered, 9 total")
}

func TestPrintStatus_NoChild(t *testing.T) {
	state := testState()
	state.ChildPID = 0

	var out bytes.Buffer
	require.NoError(t, printStatus(&out, state, nil, false))
	assert.NotContains(t, out.String(), "5678")
}

func TestPrintStatus_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStatus(&out, testState(), nil, true))

	var decoded struct {
		State daemon.State     `json:"state"`
		Live  *json.RawMessage `json:"live"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 1234, decoded.State.PID)
	assert.Equal(t, 2, decoded.State.Restarts)
	assert.Nil(t, decoded.Live)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}
