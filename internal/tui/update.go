package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/respawn/internal/api"
)

// nearBottomThreshold is the scroll percentage (0.0-1.0) at which we consider
// the viewport to be "near" the bottom for auto-follow purposes.
const nearBottomThreshold = 0.98

// phaseKeys maps the 1-3 keys to the phase they solo
var phaseKeys = map[string]string{
	"1": "start",
	"2": "exit",
	"3": "wait",
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
		m.updateViewport()

	case HistoryMsg:
		// History predates anything streamed so far
		m.events = append(append([]api.EventResponse{}, msg...), m.events...)
		m.trimEvents()
		m.updateViewport()
		if m.followMode {
			m.viewport.GotoBottom()
		}

	case EventMsg:
		m.handleEvent(api.EventResponse(msg))

	case StatusMsg:
		status := api.StatusResponse(msg)
		m.status = &status
		m.connectionError = nil

	case ClientErrorMsg:
		m.connectionError = msg.Err

	case TickMsg:
		cmds = append(cmds, m.fetchStatus(), tickCmd())
	}

	// Handle viewport updates
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle mode-specific keys first
	switch m.mode {
	case ModeStringFilter:
		cmd := m.handleStringFilterKey(msg)
		return m, cmd
	case ModeHelp:
		m.mode = ModeNormal
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.mode = ModeHelp

	case "s", "/":
		m.mode = ModeStringFilter
		m.textInput.SetValue("")
		m.textInput.Focus()

	case "1", "2", "3":
		phase := phaseKeys[msg.String()]
		if m.soloPhase == phase {
			m.soloPhase = ""
		} else {
			m.soloPhase = phase
		}
		m.updateViewport()

	case "esc":
		// Clear filters
		m.soloPhase = ""
		m.searchPattern = ""
		m.updateViewport()

	case "up", "k":
		m.viewport.LineUp(1)
		m.followMode = false

	case "down", "j":
		m.viewport.LineDown(1)

	case "pgup":
		m.viewport.HalfViewUp()
		m.followMode = false

	case "pgdown":
		m.viewport.HalfViewDown()

	case "home", "g":
		m.viewport.GotoTop()
		m.followMode = false

	case "end", "G":
		m.viewport.GotoBottom()
		m.followMode = true

	case "F":
		m.followMode = !m.followMode
		if m.followMode {
			m.viewport.GotoBottom()
		}
	}

	return m, nil
}

// handleStringFilterKey handles keys in string filter mode
func (m *Model) handleStringFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.textInput.Blur()
		m.searchPattern = ""
		m.updateViewport()
		return nil

	case "enter":
		m.searchPattern = m.textInput.Value()
		m.mode = ModeNormal
		m.textInput.Blur()
		m.updateViewport()
		return nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	// Live update filter
	m.searchPattern = m.textInput.Value()
	m.updateViewport()
	return cmd
}

// handleWindowSize handles window resize messages
func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 4 // Status panel
	footerHeight := 2 // Status bar
	viewportHeight := msg.Height - headerHeight - footerHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.viewport.YPosition = headerHeight
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
}

// handleEvent appends a streamed event
func (m *Model) handleEvent(event api.EventResponse) {
	// Check if we're at/near bottom BEFORE adding new content
	wasNearBottom := m.isNearBottom()

	m.events = append(m.events, event)
	m.trimEvents()
	m.updateViewport()

	if wasNearBottom {
		m.followMode = true
		m.viewport.GotoBottom()
	} else if m.followMode {
		m.viewport.GotoBottom()
	}
}

// trimEvents keeps only the newest maxEvents, releasing the old backing array
func (m *Model) trimEvents() {
	if len(m.events) > maxEvents {
		kept := make([]api.EventResponse, maxEvents)
		copy(kept, m.events[len(m.events)-maxEvents:])
		m.events = kept
	}
}

// isNearBottom checks if the viewport is at or near the bottom
func (m *Model) isNearBottom() bool {
	if m.viewport.AtBottom() {
		return true
	}
	return m.viewport.ScrollPercent() >= nearBottomThreshold
}

// updateViewport updates the viewport content
func (m *Model) updateViewport() {
	filtered := m.filteredEvents()
	lines := make([]string, 0, len(filtered))
	for _, e := range filtered {
		lines = append(lines, formatEvent(e))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

// filteredEvents returns events after applying the phase and string filters
func (m *Model) filteredEvents() []api.EventResponse {
	var result []api.EventResponse
	for _, e := range m.events {
		if m.soloPhase != "" && e.Phase != m.soloPhase {
			continue
		}
		if m.searchPattern != "" && !containsIgnoreCase(e.Message, m.searchPattern) {
			continue
		}
		result = append(result, e)
	}
	return result
}
