// Package constants provides shared configuration values used across the respawn application.
package constants

import "time"

// Configuration file defaults
const (
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "respawn.yaml"

	// DefaultLogFile is the append-only supervision log, relative to the working directory
	DefaultLogFile = "respawn.log"

	// DefaultMetadataTable is the table patched by the maintenance command
	DefaultMetadataTable = "requests"
)

// Timeout and duration defaults
const (
	// DefaultRestartDelay is the fixed pause between a child exit and the next start
	DefaultRestartDelay = 5 * time.Second

	// DefaultShutdownTimeout is how long a signalled child gets before SIGKILL
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultRequestTimeout is the default timeout for API requests
	DefaultRequestTimeout = 30 * time.Second
)

// Event history
const (
	// DefaultEventBufferSize is the number of supervision events kept in memory
	DefaultEventBufferSize = 1000

	// DefaultEventLimit is the default number of events returned by the API
	DefaultEventLimit = 100

	// MaxEventLimit caps the number of events a single API request can return
	MaxEventLimit = DefaultEventBufferSize
)

// FederatedRequestType is the value the maintenance command writes to metadata.requestType
const FederatedRequestType = "federated"

// ANSI color codes for terminal output
var (
	// PhaseColors are the colors used for each event phase in terminal output
	PhaseColors = map[string]string{
		"start": "\033[32m", // green
		"exit":  "\033[33m", // yellow
		"wait":  "\033[36m", // cyan
	}

	// ColorReset resets the terminal color
	ColorReset = "\033[0m"

	// ColorBrightRed is used for failed starts and unexpected exits
	ColorBrightRed = "\033[91m"
)
