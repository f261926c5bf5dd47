package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zatekoja/opticalqc/internal/domain/providers"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
)

const (
	heartbeatInterval = 30 * time.Second
	// reconnectDelayMillis is the retry hint sent to EventSource clients.
	reconnectDelayMillis = 5000

	eventConnected = "connected"
	eventHeartbeat = "heartbeat"
	eventComplete  = "validation_complete"
)

// SSEHandler streams validation outcomes to browsers as Server-Sent Events.
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	clients map[string]int // bus channel -> open streams
}

func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: heartbeatInterval,
		logger:    observability.WithComponent("sse_handler"),
		clients:   make(map[string]int),
	}
}

// WithHeartbeat overrides the heartbeat interval.
func (h *SSEHandler) WithHeartbeat(interval time.Duration) *SSEHandler {
	if interval > 0 {
		h.heartbeat = interval
	}
	return h
}

// eventStream writes SSE frames and flushes after each one.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s eventStream) send(id, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if id != "" {
		if _, err := fmt.Fprintf(s.w, "id: %s\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// StreamValidations serves GET /api/stream/validations?company_id=X. Without
// company_id the client receives every company's outcomes.
func (h *SSEHandler) StreamValidations(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	companyID := r.URL.Query().Get("company_id")
	channel := providers.EventChannelOrderValidated
	if companyID != "" {
		channel = providers.GetCompanyChannel(companyID)
	}

	ctx := r.Context()
	events, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe to channel")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	h.track(channel, 1)
	defer h.track(channel, -1)

	stream := eventStream{w: w, flusher: flusher}
	fmt.Fprintf(w, "retry: %d\n\n", reconnectDelayMillis)
	if err := stream.send("", eventConnected, map[string]any{
		"company_id": companyID,
		"channel":    channel,
		"timestamp":  time.Now().UTC(),
	}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			h.logger.Debug().Str("channel", channel).Msg("Client disconnected from validation stream")
			return
		case <-ticker.C:
			err = stream.send("", eventHeartbeat, map[string]any{"timestamp": time.Now().UTC()})
		case event, ok := <-events:
			if !ok {
				h.logger.Info().Str("channel", channel).Msg("Event bus closed the validation stream")
				return
			}
			if event == nil {
				continue
			}
			err = stream.send(event.ID, eventComplete, event)
		}
		if err != nil {
			h.logger.Debug().Err(err).Str("channel", channel).Msg("Stopping validation stream after write failure")
			return
		}
	}
}

func (h *SSEHandler) track(channel string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[channel] += delta
	if h.clients[channel] <= 0 {
		delete(h.clients, channel)
	}
}

// GetClientCount returns the number of open streams.
func (h *SSEHandler) GetClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, n := range h.clients {
		total += n
	}
	return total
}
