package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliek/respawn/internal/daemon"
)

var (
	stopWait    bool
	stopTimeout time.Duration
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the supervisor running in this directory",
	Long: `Send SIGTERM to the supervisor running in the current directory. It
forwards the signal to its child, waits for the child to exit and then
exits itself.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().BoolVar(&stopWait, "wait", true, "Wait for the supervisor to exit")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 30*time.Second, "How long to wait for the supervisor to exit")
}

func runStop(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	return stopSupervisor(dir, stopWait, stopTimeout, cmd.OutOrStdout())
}

// stopSupervisor signals the supervisor in dir and optionally waits for it
func stopSupervisor(dir string, wait bool, timeout time.Duration, out io.Writer) error {
	state, err := daemon.StopRunning(dir)
	if err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			return fmt.Errorf("respawn is not running in %s", dir)
		}
		return err
	}
	fmt.Fprintf(out, "Sent SIGTERM to respawn (pid %d)\n", state.PID)

	if !wait {
		return nil
	}

	deadline := time.Now().Add(timeout)
	for daemon.ProcessExists(state.PID) {
		if time.Now().After(deadline) {
			return fmt.Errorf("respawn (pid %d) did not exit within %s", state.PID, timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Fprintln(out, "Stopped")
	return nil
}
