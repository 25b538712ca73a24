package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resource-conflict-api/internal/dto"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
	"github.com/noah-isme/resource-conflict-api/pkg/response"
)

type availabilityQuerier interface {
	Query(ctx context.Context, q dto.AvailabilityQuery) (*dto.AvailabilityResponse, error)
}

// AvailabilityHandler serves resource calendars.
type AvailabilityHandler struct {
	service availabilityQuerier
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityQuerier) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Get godoc
// @Summary Resource availability
// @Description Lists a resource's reservations between start_date and end_date. Dates are YYYY-MM-DD (end inclusive) or RFC3339.
// @Tags Availability
// @Produce json
// @Param resource_id query int true "Resource ID"
// @Param start_date query string true "Start date"
// @Param end_date query string true "End date"
// @Success 200 {object} dto.AvailabilityResponse
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resource-availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	var q dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, queryBindError(c, err))
		return
	}
	result, err := h.service.Query(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// queryBindError names the query parameter gin failed to convert. Date bounds are plain
// strings and are checked by the service, so only numeric parameters can fail here.
func queryBindError(c *gin.Context, err error) error {
	fields := map[string]string{}
	if raw, ok := c.GetQuery("resource_id"); ok {
		if _, perr := strconv.ParseInt(raw, 10, 64); perr != nil {
			fields["resource_id"] = "must be a positive integer"
		}
	}
	if len(fields) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability query")
	}
	appErr := appErrors.Validation("invalid availability query", fields)
	appErr.Err = err
	return appErr
}
