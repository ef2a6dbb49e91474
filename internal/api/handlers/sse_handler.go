package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	"github.com/rs/zerolog/log"
)

// SSEHandler streams booking events to staff dashboards over Server-Sent
// Events, so the schedule view updates without polling.
type SSEHandler struct {
	eventBus providers.EventBus
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{eventBus: eventBus}
}

// StreamBookingUpdates handles SSE connections for booking updates
// GET /api/stream/bookings
func (h *SSEHandler) StreamBookingUpdates(w http.ResponseWriter, r *http.Request) {
	providerFilter := r.URL.Query().Get("provider_id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan, unsubscribe, err := h.eventBus.Subscribe(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("failed to subscribe to booking events")
		respondWithError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer unsubscribe()

	h.sendEvent(w, "connected", map[string]interface{}{
		"timestamp": time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if providerFilter != "" && event.ProviderID != providerFilter {
				continue
			}
			h.sendEvent(w, event.Type, event)
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal sse event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
