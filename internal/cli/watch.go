package cli

import (
	"github.com/spf13/cobra"

	"github.com/charliek/respawn/internal/api"
	"github.com/charliek/respawn/internal/tui"
)

var watchAddr string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive view of the running supervisor",
	Long: `Open an interactive view of the supervisor running in this directory:
its state and last exit at the top, the supervision events below as they
happen. The supervisor must serve the status API (--api-addr).

Quitting the view leaves the supervisor running.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "API address (default: from the running supervisor's state)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	addr, err := resolveAPIAddr(watchAddr)
	if err != nil {
		return err
	}
	return tui.Run(watchClient{NewClient(addr)})
}

// watchClient adapts Client to the TUI's needs
type watchClient struct {
	*Client
}

// RecentEvents returns up to limit of the newest events
func (c watchClient) RecentEvents(limit int) ([]api.EventResponse, error) {
	resp, err := c.GetEvents(EventParams{Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Follow streams every new event to fn
func (c watchClient) Follow(fn func(api.EventResponse)) error {
	return c.StreamEvents(EventParams{}, fn)
}
