package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/charliek/respawn/internal/api"
	"github.com/charliek/respawn/internal/daemon"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the supervisor running in this directory",
	Long: `Show the supervisor running in the current directory: its PID, the
child's PID, the restart count and where its log and API are.

When the supervisor serves the status API, the live state and the last exit
classification are included.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

// statusOutput is the JSON form of the status command
type statusOutput struct {
	State *daemon.State       `json:"state"`
	Live  *api.StatusResponse `json:"live,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}

	state, err := daemon.GetRunningState(dir)
	if err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			return fmt.Errorf("respawn is not running in %s", dir)
		}
		return err
	}

	var live *api.StatusResponse
	if state.APIAddr != "" {
		// Best effort: the state file is enough on its own
		live, _ = NewClient(state.APIAddr).GetStatus()
	}

	return printStatus(cmd.OutOrStdout(), state, live, statusJSON)
}

// printStatus renders the supervisor state as a table or JSON
func printStatus(w io.Writer, state *daemon.State, live *api.StatusResponse, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statusOutput{State: state, Live: live})
	}

	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")

	table.Append([]string{"Target", state.Target})
	table.Append([]string{"Supervisor PID", strconv.Itoa(state.PID)})
	childPID := "-"
	if state.ChildPID > 0 {
		childPID = strconv.Itoa(state.ChildPID)
	}
	table.Append([]string{"Child PID", childPID})
	table.Append([]string{"Restarts", strconv.Itoa(state.Restarts)})
	table.Append([]string{"Started", state.StartedAt.Format(time.RFC3339)})
	table.Append([]string{"Uptime", formatDuration(time.Since(state.StartedAt))})
	table.Append([]string{"Run ID", state.RunID})
	if state.LogFile != "" {
		table.Append([]string{"Log file", state.LogFile})
	}
	if state.ConfigFile != "" {
		table.Append([]string{"Config", state.ConfigFile})
	}
	if state.APIAddr != "" {
		table.Append([]string{"API", "http://" + state.APIAddr})
	}

	if live != nil {
		table.Append([]string{"State", live.State})
		if live.LastExit != nil {
			table.Append([]string{"Last exit", live.LastExit.String()})
		}
		table.Append([]string{"Restart delay", live.RestartDelay})
		table.Append([]string{"Events", fmt.Sprintf("%d buffered, %d total", live.Log.BufferedEvents, live.Log.TotalEvents)})
	}

	return table.Render()
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
