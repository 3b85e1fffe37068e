package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/charliek/respawn/internal/constants"
	"github.com/charliek/respawn/internal/domain"
	"github.com/charliek/respawn/internal/logs"
	"github.com/charliek/respawn/internal/supervisor"
)

// StatusSource is the part of the supervisor the API reads
type StatusSource interface {
	Status() domain.SupervisorStatus
	Config() supervisor.SupervisorConfig
}

// Handlers contains all HTTP handlers
type Handlers struct {
	supervisor StatusSource
	events     *logs.Manager
	metrics    http.Handler
	configFile string
}

// NewHandlers creates new HTTP handlers. metrics may be nil, in which case
// /metrics is not served.
func NewHandlers(sup StatusSource, events *logs.Manager, metrics http.Handler, configFile string) *Handlers {
	return &Handlers{
		supervisor: sup,
		events:     events,
		metrics:    metrics,
		configFile: configFile,
	}
}

// GetStatus handles GET /api/v1/status
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	cfg := h.supervisor.Config()
	resp := toStatusResponse(h.supervisor.Status(), cfg.Process, cfg.RestartDelay)
	resp.ConfigFile = h.configFile
	resp.Log = h.events.Stats()

	writeJSON(w, http.StatusOK, resp)
}

// GetEvents handles GET /api/v1/events
func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	filter, limit, err := parseEventParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	events, total, err := h.events.Query(filter, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := EventsResponse{
		Events:        make([]EventResponse, len(events)),
		FilteredCount: len(events),
		TotalCount:    total,
	}
	for i, e := range events {
		resp.Events[i] = ToEventResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseEventParams extracts the filter and limit from the query string.
// phase is a comma-separated list; limit defaults to 100 and is capped.
func parseEventParams(r *http.Request) (domain.EventFilter, int, error) {
	q := r.URL.Query()
	filter := domain.EventFilter{Pattern: q.Get("pattern")}

	if phases := q.Get("phase"); phases != "" {
		for _, p := range strings.Split(phases, ",") {
			filter.Phases = append(filter.Phases, domain.Phase(strings.TrimSpace(p)))
		}
	}
	if err := logs.ValidateFilter(filter); err != nil {
		return filter, 0, err
	}

	limit := constants.DefaultEventLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return filter, 0, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidFilter)
		}
		limit = min(n, constants.MaxEventLimit)
	}

	return filter, limit, nil
}

// Metrics handles GET /metrics
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.metrics.ServeHTTP(w, r)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "an internal error occurred"

	switch {
	case errors.Is(err, domain.ErrInvalidFilter):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrNoChild):
		status = http.StatusConflict
		message = err.Error()
	default:
		// Keep internal details out of the response
		log.Printf("Internal error: %v", err)
	}

	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  domain.ErrorCode(err),
	})
}
