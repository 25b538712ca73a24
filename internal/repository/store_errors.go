package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
)

// SQLSTATE codes the engine branches on.
const (
	codeExclusionViolation  = "23P01"
	codeCheckViolation      = "23514"
	codeForeignKeyViolation = "23503"
	codeInvalidDatetime     = "22007"
	codeDatetimeOverflow    = "22008"
	codeQueryCanceled       = "57014"
)

// ClassifyStoreError maps a database failure onto the engine's error taxonomy. op names
// the failed operation in the returned message. Unrecognised failures become Internal
// with the cause kept for server-side logging only.
func ClassifyStoreError(err error, op string) *appErrors.Error {
	if err == nil {
		return nil
	}

	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, op+" timed out")
	}
	if errors.Is(err, context.Canceled) {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, op+" cancelled")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case code == codeExclusionViolation:
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "resource already booked for an overlapping interval")
		case code == codeCheckViolation:
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "end_time must be after start_time")
		case code == codeForeignKeyViolation:
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, foreignKeyMessage(pqErr))
		case code == codeInvalidDatetime || code == codeDatetimeOverflow:
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "timestamp out of range")
		case code == codeQueryCanceled:
			return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, op+" timed out")
		case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "57P"), strings.HasPrefix(code, "53"):
			// connection exceptions, server shutdown, insufficient resources
			return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, op+": schedule store unavailable")
		}
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		if netErr != nil && netErr.Timeout() {
			return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, op+" timed out")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, op+": schedule store unavailable")
	}

	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, op+" failed")
}

// IsExclusionViolation reports whether err is the database rejecting an overlapping row.
func IsExclusionViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeExclusionViolation
}

func foreignKeyMessage(pqErr *pq.Error) string {
	switch {
	case strings.Contains(pqErr.Constraint, "resource_id"):
		return "unknown resource"
	case strings.Contains(pqErr.Constraint, "event_id"):
		return "unknown event"
	case strings.Contains(pqErr.Constraint, "task_id"):
		return "unknown task"
	default:
		return "referenced record does not exist"
	}
}
