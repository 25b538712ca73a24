package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
}

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrConflict, "already booked"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrConflict.Code, appErr.Code)
	assert.Equal(t, "already booked", appErr.Message)
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(context.DeadlineExceeded, ErrTimeout.Code, ErrTimeout.Status, "check conflicts timed out")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsUnavailable(err))
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(ErrValidation))
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation("invalid interval", map[string]string{"end_time": "must be after start_time"})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "must be after start_time", err.Fields["end_time"])
	assert.Nil(t, ErrValidation.Fields)
}
