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
	"github.com/charliek/respawn/internal/constants"
	"github.com/charliek/respawn/internal/daemon"
	"github.com/charliek/respawn/internal/domain"
)

// Events command flags
var (
	eventsAddr    string
	eventsPhases  []string
	eventsPattern string
	eventsLimit   int
	eventsFollow  bool
	eventsJSON    bool
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent supervision events",
	Long: `Show the start, exit and wait events of the supervisor running in this
directory. The supervisor must serve the status API (--api-addr).

Examples:
  respawn events                  # Last 100 events
  respawn events --phase exit     # Exits only
  respawn events --pattern killed # Events whose message contains "killed"
  respawn events -f               # Follow new events`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVar(&eventsAddr, "addr", "", "API address (default: from the running supervisor's state)")
	eventsCmd.Flags().StringSliceVar(&eventsPhases, "phase", nil, "Only show these phases (start, exit, wait)")
	eventsCmd.Flags().StringVar(&eventsPattern, "pattern", "", "Only show events whose message contains this text")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", constants.DefaultEventLimit, "Number of events to show")
	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "Stream new events as they happen")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output as JSON")
}

func runEvents(cmd *cobra.Command, args []string) error {
	addr, err := resolveAPIAddr(eventsAddr)
	if err != nil {
		return err
	}

	client := NewClient(addr)
	params := EventParams{Phases: eventsPhases, Pattern: eventsPattern, Limit: eventsLimit}
	out := cmd.OutOrStdout()

	if eventsFollow {
		printer := NewEventPrinter(out)
		return client.StreamEvents(params, printer.Print)
	}

	resp, err := client.GetEvents(params)
	if err != nil {
		return err
	}
	if eventsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return printEvents(out, resp)
}

// resolveAPIAddr returns addr if set, else the API address recorded by the
// supervisor running in the working directory
func resolveAPIAddr(addr string) (string, error) {
	if addr != "" {
		return addr, nil
	}

	dir, err := workDir()
	if err != nil {
		return "", err
	}
	state, err := daemon.GetRunningState(dir)
	if err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			return "", fmt.Errorf("respawn is not running in %s", dir)
		}
		return "", err
	}
	if state.APIAddr == "" {
		return "", fmt.Errorf("the running supervisor has no status API (start it with --api-addr)")
	}
	return state.APIAddr, nil
}

// printEvents renders events as a table
func printEvents(w io.Writer, resp *api.EventsResponse) error {
	if len(resp.Events) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Time", "Phase", "PID", "Detail")
	for _, e := range resp.Events {
		pid := "-"
		if e.PID > 0 {
			pid = strconv.Itoa(e.PID)
		}
		table.Append([]string{formatEventTime(e.Timestamp), e.Phase, pid, eventDetail(e)})
	}
	if err := table.Render(); err != nil {
		return err
	}

	if resp.TotalCount > resp.FilteredCount {
		fmt.Fprintf(w, "Showing %d of %d matching events\n", resp.FilteredCount, resp.TotalCount)
	}
	return nil
}

// eventDetail is the phase-specific part of an event for display
func eventDetail(e api.EventResponse) string {
	switch {
	case e.Error != "":
		return "failed: " + e.Error
	case e.Classification != nil:
		return fmt.Sprintf("%s (%s)", e.Classification, e.Reason)
	case e.Phase == "wait":
		return fmt.Sprintf("restart in %s", time.Duration(e.DelaySeconds*float64(time.Second)))
	default:
		return e.Message
	}
}

func formatEventTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// EventPrinter prints streamed events, colored by phase
type EventPrinter struct {
	w     io.Writer
	color bool
}

// NewEventPrinter creates an EventPrinter writing to w
func NewEventPrinter(w io.Writer) *EventPrinter {
	return &EventPrinter{w: w, color: true}
}

// Print prints one event
func (p *EventPrinter) Print(e api.EventResponse) {
	color := p.colorFor(e)
	ts := formatEventTime(e.Timestamp)
	if !p.color {
		fmt.Fprintf(p.w, "%s %-5s | %s\n", ts, e.Phase, e.Message)
		return
	}
	fmt.Fprintf(p.w, "%s %s%-5s%s | %s\n", ts, color, e.Phase, constants.ColorReset, e.Message)
}

func (p *EventPrinter) colorFor(e api.EventResponse) string {
	if e.Error != "" {
		return constants.ColorBrightRed
	}
	if e.Classification != nil && e.Classification.Kind == domain.ExitUnexpected {
		return constants.ColorBrightRed
	}
	return constants.PhaseColors[e.Phase]
}
