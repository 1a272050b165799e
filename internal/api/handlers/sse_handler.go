package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
)

const (
	defaultHeartbeat = 30 * time.Second
	clientBuffer     = 32
)

// EventSubscriber opens realtime subscriptions
type EventSubscriber interface {
	Subscribe(ctx context.Context, topics ...string) (*services.Subscription, error)
}

// SSEHandler streams appointment events as Server-Sent Events
type SSEHandler struct {
	subscriber EventSubscriber
	heartbeat  time.Duration
	clients    atomic.Int64
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(subscriber EventSubscriber) *SSEHandler {
	return &SSEHandler{subscriber: subscriber, heartbeat: defaultHeartbeat}
}

// WithHeartbeat overrides the keep-alive interval
func (h *SSEHandler) WithHeartbeat(interval time.Duration) *SSEHandler {
	h.heartbeat = interval
	return h
}

// StreamAppointments handles GET /api/stream/appointments?topics=a,b
func (h *SSEHandler) StreamAppointments(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		respondWithError(w, http.StatusUnauthorized, "Debes iniciar sesión")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	if raw := r.URL.Query().Get("topics"); raw != "" {
		for _, topic := range strings.Split(raw, ",") {
			if topic = strings.TrimSpace(topic); topic != "" {
				topics = append(topics, topic)
			}
		}
	}

	sub, err := h.subscriber.Subscribe(r.Context(), topics...)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	defer sub.Close()

	logger := observability.LoggerFromContext(r.Context()).With().
		Str("user_id", identity.UserID).
		Strs("topics", sub.Topics()).
		Logger()

	h.clients.Add(1)
	defer h.clients.Add(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	h.sendEvent(w, "connected", map[string]interface{}{
		"topics":    sub.Topics(),
		"role":      identity.Role,
		"timestamp": time.Now(),
	})
	flusher.Flush()
	logger.Debug().Msg("stream opened")

	clientChan := make(chan *entities.AppointmentEvent, clientBuffer)
	go h.forwardEvents(r.Context(), sub.Events(), clientChan, identity)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Msg("client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, ok := <-clientChan:
			if !ok {
				return
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// forwardEvents filters events for the caller and hands them to the writer
// loop, dropping events when the client falls behind
func (h *SSEHandler) forwardEvents(ctx context.Context, events <-chan *entities.AppointmentEvent, clientChan chan<- *entities.AppointmentEvent, identity *entities.Identity) {
	defer close(clientChan)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !visibleTo(identity, event) {
				continue
			}
			select {
			case clientChan <- event:
			default:
				observability.LoggerFromContext(ctx).Warn().
					Str("event_id", event.ID).
					Str("user_id", identity.UserID).
					Msg("client buffer full, dropping event")
			}
		}
	}
}

// visibleTo reports whether identity may see event. Admins see everything,
// patients their own appointments and the payload-less refresh broadcast.
func visibleTo(identity *entities.Identity, event *entities.AppointmentEvent) bool {
	if identity.IsAdmin() || event.Type == entities.AppointmentEventRefresh {
		return true
	}
	return event.PatientID() == identity.UserID
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// ClientCount returns the number of open streams
func (h *SSEHandler) ClientCount() int {
	return int(h.clients.Load())
}

