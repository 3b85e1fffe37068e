package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charliek/respawn/internal/constants"
	"github.com/charliek/respawn/internal/domain"
)

// ManagerConfig holds configuration for the event log manager
type ManagerConfig struct {
	BufferSize         int       // Number of events kept in memory
	SubscriptionBuffer int       // Buffer size for subscription channels
	FilePath           string    // Append-only log file; empty disables the file sink
	Console            io.Writer // Defaults to stdout
	Errors             io.Writer // Where sink failures are reported; defaults to stderr
}

// DefaultManagerConfig returns the default configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		BufferSize:         constants.DefaultEventBufferSize,
		SubscriptionBuffer: 100,
		FilePath:           constants.DefaultLogFile,
	}
}

// Stats describes the state of the event log
type Stats struct {
	BufferedEvents int    `json:"buffered_events"`
	TotalEvents    uint64 `json:"total_events"`
	BufferSize     int    `json:"buffer_size"`
	Subscribers    int    `json:"subscribers"`
	LogFile        string `json:"log_file,omitempty"`
	FileActive     bool   `json:"file_active"`
}

// Manager records supervision events. Each event is written as one line to
// the console and appended to the log file, kept in a ring buffer for queries
// and broadcast to subscribers.
type Manager struct {
	mu       sync.Mutex
	console  io.Writer
	errs     io.Writer
	path     string
	file     io.WriteCloser
	reported bool

	buffer        *RingBuffer
	subscriptions *SubscriptionManager
}

// NewManager creates a new event log manager. It never fails: if the log
// file cannot be opened the problem is reported once and events go to the
// console only.
func NewManager(config ManagerConfig) *Manager {
	if config.BufferSize <= 0 {
		config.BufferSize = constants.DefaultEventBufferSize
	}
	if config.SubscriptionBuffer <= 0 {
		config.SubscriptionBuffer = DefaultManagerConfig().SubscriptionBuffer
	}
	if config.Console == nil {
		config.Console = os.Stdout
	}
	if config.Errors == nil {
		config.Errors = os.Stderr
	}

	m := &Manager{
		console:       config.Console,
		errs:          config.Errors,
		path:          config.FilePath,
		buffer:        NewRingBuffer(config.BufferSize),
		subscriptions: NewSubscriptionManager(config.SubscriptionBuffer),
	}

	if config.FilePath != "" {
		f, err := openLogFile(config.FilePath)
		if err != nil {
			m.reportFileError(err)
		} else {
			m.file = f
		}
	}

	return m
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// Record writes the event to every sink. Events are serialized so lines
// never interleave.
func (m *Manager) Record(event domain.SupervisionEvent) {
	line := event.Line() + "\n"

	m.mu.Lock()
	_, _ = io.WriteString(m.console, line)
	if m.file != nil {
		if _, err := io.WriteString(m.file, line); err != nil {
			m.reportFileError(err)
			_ = m.file.Close()
			m.file = nil
		}
	}
	m.mu.Unlock()

	m.buffer.Write(event)
	m.subscriptions.Broadcast(event)
}

// reportFileError must be called with mu held or before the manager is shared
func (m *Manager) reportFileError(err error) {
	if m.reported {
		return
	}
	m.reported = true
	fmt.Fprintf(m.errs, "respawn: log file %s unavailable, continuing on console only: %v\n", m.path, err)
}

// Query retrieves events matching the filter.
// Returns at most limit of the newest matches and the total count before limiting.
func (m *Manager) Query(filter domain.EventFilter, limit int) ([]domain.SupervisionEvent, int, error) {
	return FilterEventsLimit(m.buffer.Read(), filter, limit)
}

// Recent returns the last n events
func (m *Manager) Recent(n int) []domain.SupervisionEvent {
	return m.buffer.ReadLast(n)
}

// Subscribe creates a subscription for events matching the filter
func (m *Manager) Subscribe(filter domain.EventFilter) (string, <-chan domain.SupervisionEvent, error) {
	return m.subscriptions.Subscribe(filter)
}

// Unsubscribe removes a subscription
func (m *Manager) Unsubscribe(id string) {
	m.subscriptions.Unsubscribe(id)
}

// Stats returns statistics about the event log
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	active := m.file != nil
	m.mu.Unlock()

	return Stats{
		BufferedEvents: m.buffer.Count(),
		TotalEvents:    m.buffer.Written(),
		BufferSize:     m.buffer.Capacity(),
		Subscribers:    m.subscriptions.Count(),
		LogFile:        m.path,
		FileActive:     active,
	}
}

// Close closes the log file and all subscriptions
func (m *Manager) Close() error {
	m.subscriptions.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}
