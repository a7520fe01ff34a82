package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scooter/internal/domain"
	"scooter/internal/middleware"
	"scooter/internal/service"
)

// RentalHandler handles HTTP requests for the rent, active and inactive screens.
type RentalHandler struct {
	registry  *service.SessionRegistry
	scooters  *service.ScooterService
	summaries *service.SummaryService
}

// NewRentalHandler creates a new RentalHandler.
func NewRentalHandler(
	registry *service.SessionRegistry,
	scooters *service.ScooterService,
	summaries *service.SummaryService,
) *RentalHandler {
	return &RentalHandler{
		registry:  registry,
		scooters:  scooters,
		summaries: summaries,
	}
}

// UnlockRequest is the HTTP request body for unlocking a scooter.
type UnlockRequest struct {
	// UserID is the number the rider typed, sent as text.
	UserID string `json:"user_id"`
}

// ScooterResponse describes a scooter and where it is.
type ScooterResponse struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Status    int     `json:"status"`
	MapURL    string  `json:"map_url"`
}

// RentScreenResponse is the HTTP response for the rent screen.
type RentScreenResponse struct {
	Scooter ScooterResponse `json:"scooter"`
	Phase   domain.Phase    `json:"phase"`
	Screen  ScreenResponse  `json:"screen"`
}

// SessionResponse is a live view of the rider's rental session.
type SessionResponse struct {
	Phase          domain.Phase        `json:"phase"`
	ScooterID      string              `json:"scooter_id"`
	UserID         string              `json:"user_id,omitempty"`
	RentalID       string              `json:"rental_id,omitempty"`
	Greeting       string              `json:"greeting"`
	Clock          string              `json:"clock"`
	ElapsedSeconds int64               `json:"elapsed_seconds"`
	AbortReason    domain.AbortReason  `json:"abort_reason,omitempty"`
	Summary        *domain.RideSummary `json:"summary,omitempty"`
	Screen         ScreenResponse      `json:"screen"`
}

// InactiveScreenResponse is the HTTP response for the post-ride summary.
type InactiveScreenResponse struct {
	Summary *domain.RideSummary `json:"summary"`
	Scooter *ScooterResponse    `json:"scooter,omitempty"`
}

func toScooterResponse(scooter *domain.Scooter) ScooterResponse {
	return ScooterResponse{
		ID:        scooter.ID,
		Latitude:  scooter.Latitude,
		Longitude: scooter.Longitude,
		Status:    scooter.Status,
		MapURL:    scooter.MapEmbedURL(),
	}
}

func toSessionResponse(snapshot domain.SessionSnapshot) SessionResponse {
	return SessionResponse{
		Phase:          snapshot.Phase,
		ScooterID:      snapshot.ScooterID,
		UserID:         snapshot.UserID,
		RentalID:       snapshot.RentalID,
		Greeting:       snapshot.Greeting,
		Clock:          snapshot.Clock,
		ElapsedSeconds: snapshot.ElapsedSeconds,
		AbortReason:    snapshot.AbortReason,
		Summary:        snapshot.Summary,
		Screen:         toScreenResponse(snapshot.Screen),
	}
}

// GetScooter handles GET /v1/scooters/:scooter_id
func (h *RentalHandler) GetScooter(c *gin.Context) {
	scooterID := c.Param("scooter_id")
	ctx := c.Request.Context()

	scooter, err := h.scooters.GetScooter(ctx, scooterID)
	if err != nil {
		respondError(c, err)
		return
	}

	session := h.registry.Start(ctx, middleware.BrowserSessionID(c), scooterID)

	respondJSON(c, http.StatusOK, RentScreenResponse{
		Scooter: toScooterResponse(scooter),
		Phase:   session.Phase(),
		Screen:  toScreenResponse(session.Screen()),
	})
}

// Unlock handles POST /v1/scooters/:scooter_id/unlock
func (h *RentalHandler) Unlock(c *gin.Context) {
	var req UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	scooterID := c.Param("scooter_id")
	ctx := c.Request.Context()

	// Rejected ids never reach the backend.
	if err := service.ValidateUserID(req.UserID); err != nil {
		respondError(c, err)
		return
	}

	session := h.registry.Start(ctx, middleware.BrowserSessionID(c), scooterID)
	screen, err := session.Unlock(ctx, req.UserID)
	if err == nil {
		h.scooters.Invalidate(ctx, scooterID)
	}
	respondAction(c, screen, err)
}

// GetActive handles GET /v1/scooters/:scooter_id/active
func (h *RentalHandler) GetActive(c *gin.Context) {
	session := h.registry.Current(c.Request.Context(), middleware.BrowserSessionID(c), c.Param("scooter_id"))
	respondJSON(c, http.StatusOK, toSessionResponse(session.Snapshot()))
}

// Lock handles POST /v1/scooters/:scooter_id/lock
func (h *RentalHandler) Lock(c *gin.Context) {
	scooterID := c.Param("scooter_id")
	ctx := c.Request.Context()

	session := h.registry.Current(ctx, middleware.BrowserSessionID(c), scooterID)
	if session.ScooterID() != scooterID {
		respondAction(c, session.Screen(), service.ErrScooterMismatch)
		return
	}
	screen, err := session.Lock(ctx)
	if err == nil {
		h.scooters.Invalidate(ctx, session.ScooterID())
	}
	respondAction(c, screen, err)
}

// GetInactive handles GET /v1/scooters/:scooter_id/inactive
func (h *RentalHandler) GetInactive(c *gin.Context) {
	scooterID := c.Param("scooter_id")
	ctx := c.Request.Context()

	session := h.registry.Current(ctx, middleware.BrowserSessionID(c), scooterID)
	if session.ScooterID() != scooterID {
		respondError(c, service.ErrScooterMismatch)
		return
	}
	rentalID := session.RentalID(ctx)
	if rentalID == "" {
		respondError(c, service.ErrNoRental)
		return
	}

	resp := InactiveScreenResponse{
		Summary: h.summaries.Build(ctx, rentalID, session.UserID(ctx)),
	}
	// The summary stands on its own; the scooter panel is optional.
	if scooter, err := h.scooters.GetScooter(ctx, scooterID); err == nil {
		scooterResp := toScooterResponse(scooter)
		resp.Scooter = &scooterResp
	}

	respondJSON(c, http.StatusOK, resp)
}
