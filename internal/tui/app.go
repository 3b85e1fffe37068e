package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/respawn/internal/api"
)

// errStreamClosed is shown when the supervisor closes the event stream
var errStreamClosed = errors.New("event stream closed")

// Client is the API surface the TUI needs from a running supervisor
type Client interface {
	GetStatus() (*api.StatusResponse, error)
	// RecentEvents returns up to limit of the newest recorded events
	RecentEvents(limit int) ([]api.EventResponse, error)
	// Follow calls fn for every new event until the stream ends
	Follow(fn func(api.EventResponse)) error
}

// Run starts the TUI connected to a running supervisor through client.
// It blocks until the user quits; the supervisor keeps running.
func Run(client Client) error {
	model := NewModel(client)
	p := tea.NewProgram(model, tea.WithAltScreen())

	go loadHistory(p, client)
	go forwardEvents(p, client)

	_, err := p.Run()
	return err
}

// loadHistory sends the already recorded events to the program
func loadHistory(p *tea.Program, client Client) {
	events, err := client.RecentEvents(maxEvents)
	if err != nil {
		p.Send(ClientErrorMsg{Err: err})
		return
	}
	p.Send(HistoryMsg(events))
}

// forwardEvents streams events from the API and sends them to the program.
// It exits when the stream closes; Send is a no-op once the program has quit.
func forwardEvents(p *tea.Program, client Client) {
	err := client.Follow(func(e api.EventResponse) {
		p.Send(EventMsg(e))
	})
	if err != nil {
		p.Send(ClientErrorMsg{Err: err})
		return
	}
	p.Send(ClientErrorMsg{Err: errStreamClosed})
}
