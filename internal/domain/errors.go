package domain

import "errors"

// Domain errors
var (
	ErrSupervisorRunning = errors.New("supervisor already running")
	ErrNoChild           = errors.New("no child process running")
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidFilter     = errors.New("invalid event filter")
	ErrInvalidMetadata   = errors.New("metadata is not a JSON object")
	ErrInvalidTable      = errors.New("invalid table name")
)

// Error codes for API responses
const (
	ErrCodeNoChild       = "NO_CHILD"
	ErrCodeInvalidConfig = "INVALID_CONFIG"
	ErrCodeInvalidFilter = "INVALID_FILTER"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrorCode returns the API error code for a domain error
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNoChild):
		return ErrCodeNoChild
	case errors.Is(err, ErrInvalidConfig):
		return ErrCodeInvalidConfig
	case errors.Is(err, ErrInvalidFilter):
		return ErrCodeInvalidFilter
	default:
		return ErrCodeInternal
	}
}
