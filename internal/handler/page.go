package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scooter/internal/domain"
	"scooter/internal/service"
)

// PageHandler serves the screens that resume purely from their URL.
type PageHandler struct {
	summaries *service.SummaryService
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(summaries *service.SummaryService) *PageHandler {
	return &PageHandler{summaries: summaries}
}

// AbortScreenResponse is the HTTP response for the abort screen.
type AbortScreenResponse struct {
	Branch   domain.AbortBranch  `json:"branch"`
	Reason   string              `json:"reason"`
	RentalID string              `json:"rental_id"`
	UserID   string              `json:"user_id"`
	Summary  *domain.RideSummary `json:"summary,omitempty"`
}

// GetAbort handles GET /v1/abort/:reason/:rental_id/:user_id
func (h *PageHandler) GetAbort(c *gin.Context) {
	reason := c.Param("reason")
	resp := AbortScreenResponse{
		Branch:   service.DispatchAbort(domain.AbortReason(reason)),
		Reason:   reason,
		RentalID: c.Param("rental_id"),
		UserID:   c.Param("user_id"),
	}

	// Emergency screens render immediately without backend lookups.
	if resp.Branch == domain.AbortBranchWeather {
		resp.Summary = h.summaries.Build(c.Request.Context(), resp.RentalID, resp.UserID)
	}

	respondJSON(c, http.StatusOK, resp)
}

// GetError handles GET /v1/errors/:error_type
func (h *PageHandler) GetError(c *gin.Context) {
	respondJSON(c, http.StatusOK, service.DescribeError(c.Param("error_type")))
}
