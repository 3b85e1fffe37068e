package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/respawn/internal/api"
)

// maxEvents is the maximum number of events to keep in memory
const maxEvents = 1000

// maxErrorDisplayLen is the maximum length of error messages in the status bar
const maxErrorDisplayLen = 60

// statusRefreshInterval is how often the header is refreshed from the API
const statusRefreshInterval = time.Second

// Mode represents the current TUI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeStringFilter
	ModeHelp
)

// Model is the bubbletea model for watching a running supervisor
type Model struct {
	// Dependencies
	client Client

	// State
	status *api.StatusResponse
	events []api.EventResponse

	// UI components
	viewport  viewport.Model
	textInput textinput.Model

	// Mode
	mode Mode

	// Filtering
	soloPhase     string // Single phase to show (1-3 keys)
	searchPattern string // Substring filter on event messages

	// Auto-scroll
	followMode bool

	// Connection state
	connectionError error // Last API error, nil if connected

	// Dimensions
	width  int
	height int
	ready  bool
}

// NewModel creates a new TUI model
func NewModel(client Client) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.CharLimit = 100
	ti.Width = 40

	return Model{
		client:     client,
		events:     make([]api.EventResponse, 0),
		textInput:  ti,
		mode:       ModeNormal,
		followMode: true,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchStatus(),
		tickCmd(),
	)
}

// EventMsg is sent when a supervision event arrives
type EventMsg api.EventResponse

// HistoryMsg carries the events recorded before the TUI connected
type HistoryMsg []api.EventResponse

// StatusMsg carries a fresh status snapshot
type StatusMsg api.StatusResponse

// ClientErrorMsg is sent when an API error occurs
type ClientErrorMsg struct {
	Err error
}

// TickMsg is sent periodically
type TickMsg time.Time

// fetchStatus returns a command to fetch the supervisor status from the API
func (m Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.GetStatus()
		if err != nil {
			return ClientErrorMsg{Err: err}
		}
		return StatusMsg(*status)
	}
}

// tickCmd returns a command that ticks periodically
func tickCmd() tea.Cmd {
	return tea.Tick(statusRefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
