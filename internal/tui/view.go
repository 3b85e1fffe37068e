package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/charliek/respawn/internal/api"
	"github.com/charliek/respawn/internal/domain"
)

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.mode == ModeHelp {
		return helpView()
	}

	var sb strings.Builder
	sb.WriteString(m.statusPanel())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.statusBar())
	return sb.String()
}

// statusPanel renders the supervisor summary header
func (m Model) statusPanel() string {
	if m.status == nil {
		return headerStyle.Render(dimStyle.Render("connecting..."))
	}

	s := m.status
	items := []string{
		s.Target,
		stateStyle(s.State).Render(s.State),
	}
	if s.PID > 0 {
		items = append(items, fmt.Sprintf("pid %d", s.PID))
		items = append(items, "up "+(time.Duration(s.UptimeSeconds)*time.Second).String())
	}
	items = append(items, fmt.Sprintf("restarts %d", s.Restarts))
	if s.LastExit != nil {
		style := exitStyle
		if s.LastExit.Kind == domain.ExitUnexpected {
			style = failureStyle
		}
		items = append(items, "last exit "+style.Render(s.LastExit.String()))
	}
	items = append(items, dimStyle.Render("delay "+s.RestartDelay))

	header := lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(items, "  "))
	return headerStyle.Render(header)
}

// statusBar renders the bottom status bar
func (m Model) statusBar() string {
	var left string

	switch m.mode {
	case ModeStringFilter:
		left = "Filter: " + m.textInput.View()
	default:
		switch {
		case m.soloPhase != "" && m.searchPattern != "":
			left = fmt.Sprintf("Showing: %s matching %q (ESC to clear)", m.soloPhase, m.searchPattern)
		case m.soloPhase != "":
			left = fmt.Sprintf("Showing: %s (ESC to clear)", m.soloPhase)
		case m.searchPattern != "":
			left = fmt.Sprintf("Filter: %s (ESC to clear)", m.searchPattern)
		default:
			left = "? for help"
		}
		if m.connectionError != nil {
			left += " " + errorStyle.Render(" "+truncateError(m.connectionError, maxErrorDisplayLen)+" ")
		}
	}

	followIndicator := "[FOLLOW]"
	if !m.followMode {
		followIndicator = "[PAUSED]"
	}
	right := fmt.Sprintf("%s %d/%d events", followIndicator, len(m.filteredEvents()), len(m.events))

	leftWidth := m.width - len(right) - 4
	if leftWidth < 0 {
		leftWidth = 0
	}

	leftPart := statusStyle.Width(leftWidth).Render(left)
	rightPart := statusStyle.Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPart, "  ", rightPart)
}

// formatEvent formats a single event for display
func formatEvent(e api.EventResponse) string {
	ts := e.Timestamp
	if t, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		ts = t.Local().Format("15:04:05")
	}

	phase := phaseStyle(e).Render(fmt.Sprintf("%-5s", e.Phase))
	return fmt.Sprintf("%s %s %s", dimStyle.Render(ts), phase, e.Message)
}

// phaseStyle returns the style for an event's phase label
func phaseStyle(e api.EventResponse) lipgloss.Style {
	if e.Error != "" {
		return failureStyle
	}
	switch e.Phase {
	case "start":
		return startStyle
	case "exit":
		if e.Classification != nil && e.Classification.Kind == domain.ExitUnexpected {
			return failureStyle
		}
		return exitStyle
	case "wait":
		return waitStyle
	default:
		return dimStyle
	}
}

// stateStyle returns the style for the supervisor state
func stateStyle(state string) lipgloss.Style {
	switch domain.SupervisorState(state) {
	case domain.SupervisorStateRunning:
		return runningStyle
	case domain.SupervisorStateWaiting, domain.SupervisorStateClassifying:
		return waitingStyle
	default:
		return idleStyle
	}
}

// helpView renders the help overlay
func helpView() string {
	help := `
respawn - watching supervisor

Navigation:
  j/↓        Scroll down
  k/↑        Scroll up (pauses auto-follow)
  g/Home     Go to top (pauses auto-follow)
  G/End      Go to bottom (resumes auto-follow)
  PgUp/PgDn  Page up/down
  F          Toggle auto-follow mode

Filtering:
  1          Solo start events (toggle)
  2          Solo exit events (toggle)
  3          Solo wait events (toggle)
  s or /     String filter (substring)
  ESC        Clear filters

Other:
  ?          Toggle help
  q/Ctrl+C   Quit (supervisor continues running)

Press any key to close help...
`
	return helpStyle.Render(help)
}

// containsIgnoreCase performs a case-insensitive substring search
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// truncateError truncates an error message to maxLen characters
func truncateError(err error, maxLen int) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxLen {
		return msg[:maxLen-3] + "..."
	}
	return msg
}
