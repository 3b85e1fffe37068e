package api

import (
	"strings"
	"time"

	"github.com/charliek/respawn/internal/domain"
	"github.com/charliek/respawn/internal/logs"
)

// sensitiveEnvPatterns contains patterns that indicate sensitive environment variables
var sensitiveEnvPatterns = []string{
	"PASSWORD",
	"SECRET",
	"KEY",
	"TOKEN",
	"CREDENTIAL",
	"PRIVATE",
	"AUTH",
}

// StatusResponse represents the response for GET /api/v1/status
type StatusResponse struct {
	RunID         string                     `json:"run_id"`
	State         string                     `json:"state"`
	Target        string                     `json:"target"`
	Args          []string                   `json:"args,omitempty"`
	Env           map[string]string          `json:"env,omitempty"`
	PID           int                        `json:"pid"`
	Restarts      int                        `json:"restarts"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	StartedAt     string                     `json:"started_at,omitempty"`
	LastExit      *domain.ExitClassification `json:"last_exit,omitempty"`
	RestartDelay  string                     `json:"restart_delay"`
	ConfigFile    string                     `json:"config_file,omitempty"`
	Log           logs.Stats                 `json:"log"`
	APIVersion    string                     `json:"api_version"`
}

// EventsResponse represents the response for GET /api/v1/events
type EventsResponse struct {
	Events        []EventResponse `json:"events"`
	FilteredCount int             `json:"filtered_count"`
	TotalCount    int             `json:"total_count"`
}

// EventResponse represents a single supervision event
type EventResponse struct {
	Timestamp      string                     `json:"timestamp"`
	Phase          string                     `json:"phase"`
	Target         string                     `json:"target"`
	PID            int                        `json:"pid,omitempty"`
	Classification *domain.ExitClassification `json:"classification,omitempty"`
	Reason         string                     `json:"reason,omitempty"`
	DelaySeconds   float64                    `json:"delay_seconds,omitempty"`
	Error          string                     `json:"error,omitempty"`
	Message        string                     `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToEventResponse converts a supervision event to its API form
func ToEventResponse(event domain.SupervisionEvent) EventResponse {
	return EventResponse{
		Timestamp:      event.Timestamp.Format(time.RFC3339Nano),
		Phase:          string(event.Phase),
		Target:         event.Target,
		PID:            event.PID,
		Classification: event.Exit,
		Reason:         event.Reason,
		DelaySeconds:   event.Delay.Seconds(),
		Error:          event.Err,
		Message:        event.Message(),
	}
}

// toStatusResponse builds the status payload from a supervisor snapshot
func toStatusResponse(status domain.SupervisorStatus, proc domain.ProcessConfig, delay time.Duration) StatusResponse {
	resp := StatusResponse{
		RunID:         status.RunID,
		State:         string(status.State),
		Target:        status.Target,
		Args:          proc.Args,
		Env:           filterSensitiveEnv(proc.Env),
		PID:           status.PID,
		Restarts:      status.Restarts,
		UptimeSeconds: status.UptimeSeconds(),
		LastExit:      status.LastExit,
		RestartDelay:  delay.String(),
		APIVersion:    "v1",
	}
	if !status.StartedAt.IsZero() {
		resp.StartedAt = status.StartedAt.Format(time.RFC3339)
	}
	return resp
}

// filterSensitiveEnv replaces values of sensitive-looking variables with "[REDACTED]"
func filterSensitiveEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}

	filtered := make(map[string]string, len(env))
	for key, value := range env {
		if isSensitiveEnvVar(key) {
			filtered[key] = "[REDACTED]"
		} else {
			filtered[key] = value
		}
	}
	return filtered
}

// isSensitiveEnvVar checks if an environment variable name matches sensitive patterns
func isSensitiveEnvVar(name string) bool {
	upperName := strings.ToUpper(name)
	for _, pattern := range sensitiveEnvPatterns {
		if strings.Contains(upperName, pattern) {
			return true
		}
	}
	return false
}
