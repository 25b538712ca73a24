package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resource-conflict-api/internal/dto"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
	"github.com/noah-isme/resource-conflict-api/pkg/response"
)

type conflictChecker interface {
	Check(ctx context.Context, req dto.CheckConflictsRequest) (*dto.CheckConflictsResponse, error)
}

// ConflictHandler exposes the conflict check.
type ConflictHandler struct {
	service conflictChecker
}

// NewConflictHandler constructs the handler.
func NewConflictHandler(service conflictChecker) *ConflictHandler {
	return &ConflictHandler{service: service}
}

// Check godoc
// @Summary Check resource conflicts
// @Description Reports every existing reservation on the given resources that overlaps [start_time, end_time).
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param payload body dto.CheckConflictsRequest true "Candidate reservation"
// @Success 200 {object} dto.CheckConflictsResponse
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /check-conflicts [post]
func (h *ConflictHandler) Check(c *gin.Context) {
	var req dto.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
