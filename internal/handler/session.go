package handler

import (
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"scooter/internal/domain"
	"scooter/internal/metrics"
	"scooter/internal/middleware"
	"scooter/internal/repository"
	"scooter/internal/service"
)

const eventsWriteWait = 5 * time.Second

// SessionHandler streams and reports the rider's rental session.
type SessionHandler struct {
	registry *service.SessionRegistry
	events   repository.SessionEventRepository
	upgrader websocket.Upgrader
}

// NewSessionHandler creates a new SessionHandler. events may be nil, in which
// case history is always empty.
func NewSessionHandler(
	registry *service.SessionRegistry,
	events repository.SessionEventRepository,
	allowedOrigins []string,
) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		events:   events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// SessionEventResponse is one entry of the session history.
type SessionEventResponse struct {
	ID        string       `json:"id"`
	ScooterID string       `json:"scooter_id"`
	UserID    string       `json:"user_id"`
	RentalID  string       `json:"rental_id"`
	Phase     domain.Phase `json:"phase"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt string       `json:"created_at"`
}

// HistoryResponse is the HTTP response for the session history.
type HistoryResponse struct {
	RentalID string                 `json:"rental_id"`
	Events   []SessionEventResponse `json:"events"`
}

// Events handles GET /v1/session/events
func (h *SessionHandler) Events(c *gin.Context) {
	session, ok := h.registry.Lookup(middleware.BrowserSessionID(c))
	if !ok {
		respondError(c, service.ErrNoSession)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied.
		return
	}
	defer conn.Close()

	metrics.WebSocketConnectionsGauge.Inc()
	defer metrics.WebSocketConnectionsGauge.Dec()

	updates, unsubscribe := session.Subscribe()
	defer unsubscribe()

	// The client sends nothing; reading only detects when it goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case snapshot, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(toSessionResponse(snapshot)); err != nil {
				return
			}
		}
	}
}

// History handles GET /v1/session/history
func (h *SessionHandler) History(c *gin.Context) {
	session, ok := h.registry.Lookup(middleware.BrowserSessionID(c))
	if !ok {
		respondError(c, service.ErrNoSession)
		return
	}

	ctx := c.Request.Context()
	rentalID := session.RentalID(ctx)
	if rentalID == "" {
		respondError(c, service.ErrNoRental)
		return
	}

	resp := HistoryResponse{RentalID: rentalID, Events: []SessionEventResponse{}}
	if h.events != nil {
		events, err := h.events.ListByRentalID(ctx, rentalID)
		if err != nil {
			respondError(c, err)
			return
		}
		for _, event := range events {
			resp.Events = append(resp.Events, SessionEventResponse{
				ID:        event.ID,
				ScooterID: event.ScooterID,
				UserID:    event.UserID,
				RentalID:  event.RentalID,
				Phase:     event.Phase,
				Reason:    event.Reason,
				CreatedAt: event.CreatedAt.Format(time.RFC3339),
			})
		}
	}

	respondJSON(c, http.StatusOK, resp)
}

// checkOrigin accepts same-origin requests and the configured frontend origins.
func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowedOrigins, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
