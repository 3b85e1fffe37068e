package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/charliek/respawn/internal/domain"
)

// StreamEvents handles GET /api/v1/events/stream (SSE)
func (h *Handlers) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	filter := domain.EventFilter{Pattern: r.URL.Query().Get("pattern")}
	if phases := r.URL.Query().Get("phase"); phases != "" {
		for _, p := range strings.Split(phases, ",") {
			filter.Phases = append(filter.Phases, domain.Phase(strings.TrimSpace(p)))
		}
	}

	subID, ch, err := h.events.Subscribe(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	defer h.events.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	// Slow clients lose events at the subscription buffer; a failed write ends the stream
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}

			data, err := json.Marshal(ToEventResponse(event))
			if err != nil {
				continue
			}

			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Phase, data); err != nil {
				log.Printf("SSE write error (client likely disconnected): %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
