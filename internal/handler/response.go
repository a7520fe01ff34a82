package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"scooter/internal/backend"
	"scooter/internal/domain"
	"scooter/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ScreenResponse is a navigation decision for the frontend router.
type ScreenResponse struct {
	Name      domain.ScreenName `json:"name"`
	Path      string            `json:"path"`
	ScooterID string            `json:"scooter_id,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	RentalID  string            `json:"rental_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
}

func toScreenResponse(screen domain.Screen) ScreenResponse {
	return ScreenResponse{
		Name:      screen.Name,
		Path:      screen.Path(),
		ScooterID: screen.ScooterID,
		Reason:    screen.Reason,
		RentalID:  screen.RentalID,
		UserID:    screen.UserID,
	}
}

// ActionResponse is returned by unlock and lock. Screen is set on failures too,
// so the frontend always knows where to navigate.
type ActionResponse struct {
	Screen ScreenResponse `json:"screen"`
	Error  string         `json:"error,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondAction sends the outcome of an unlock or lock.
func respondAction(c *gin.Context, screen domain.Screen, err error) {
	if err != nil {
		c.JSON(mapErrorToHTTPStatus(err), ActionResponse{Screen: toScreenResponse(screen), Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ActionResponse{Screen: toScreenResponse(screen)})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/backend errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrScooterNotFound),
		errors.Is(err, service.ErrNoRental),
		errors.Is(err, service.ErrNoSession),
		errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidScooterID):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrSessionNotUnlocking),
		errors.Is(err, service.ErrSessionNotActive),
		errors.Is(err, service.ErrRequestInProgress),
		errors.Is(err, service.ErrScooterMismatch),
		errors.Is(err, service.ErrSessionClosed):
		return http.StatusConflict

	// Backend declined the request
	case errors.Is(err, service.ErrUnlockRejected),
		errors.Is(err, service.ErrLockRejected):
		return http.StatusUnprocessableEntity

	// Backend unreachable or misbehaving
	case errors.Is(err, backend.ErrUnavailable),
		errors.Is(err, backend.ErrUnexpectedPayload):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
