package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resource-conflict-api/internal/dto"
	"github.com/noah-isme/resource-conflict-api/internal/models"
	"github.com/noah-isme/resource-conflict-api/internal/service"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
	"github.com/noah-isme/resource-conflict-api/pkg/response"
)

type reservationWriter interface {
	CommitRequest(ctx context.Context, req dto.CommitReservationRequest) (*models.CommitResult, error)
	ReviseRequest(ctx context.Context, id int64, req dto.ReviseReservationRequest) (*models.CommitResult, error)
	Unassign(ctx context.Context, id int64) error
}

// ReservationHandler exposes the reservation writer.
type ReservationHandler struct {
	service reservationWriter
}

// NewReservationHandler constructs the handler.
func NewReservationHandler(service reservationWriter) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// Commit godoc
// @Summary Commit reservations
// @Description Reserves every resource for the interval. Without force any overlap rejects the whole request.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Retry key"
// @Param payload body dto.CommitReservationRequest true "Reservation"
// @Success 201 {object} dto.CommitResponse
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} dto.CommitResponse
// @Failure 503 {object} response.Envelope
// @Router /reservations [post]
func (h *ReservationHandler) Commit(c *gin.Context) {
	var req dto.CommitReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	result, err := h.service.CommitRequest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeCommitResult(c, result, http.StatusCreated)
}

// Revise godoc
// @Summary Revise a reservation
// @Description Moves a reservation to a new interval. The reservation never conflicts with itself.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param id path int true "Reservation ID"
// @Param payload body dto.ReviseReservationRequest true "New interval"
// @Success 200 {object} dto.CommitResponse
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} dto.CommitResponse
// @Router /reservations/{id} [put]
func (h *ReservationHandler) Revise(c *gin.Context) {
	id, err := service.ParseReservationID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReviseReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	result, err := h.service.ReviseRequest(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeCommitResult(c, result, http.StatusOK)
}

// Unassign godoc
// @Summary Remove a reservation
// @Tags Reservations
// @Param id path int true "Reservation ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Unassign(c *gin.Context) {
	id, err := service.ParseReservationID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Unassign(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func writeCommitResult(c *gin.Context, result *models.CommitResult, okStatus int) {
	payload := dto.NewCommitResponse(result)
	switch {
	case !result.Committed:
		response.JSON(c, http.StatusConflict, payload)
	case okStatus == http.StatusCreated:
		response.Created(c, payload)
	default:
		response.JSON(c, okStatus, payload)
	}
}
