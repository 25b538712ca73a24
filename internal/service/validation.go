package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/resource-conflict-api/internal/models"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validationError converts validator output into a field-level Validation error.
func validationError(err error, message string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	appErr := appErrors.Validation(message, fields)
	appErr.Err = err
	return appErr
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// parseInterval parses RFC3339 bounds and checks end > start.
func parseInterval(startRaw, endRaw string) (models.TimeRange, error) {
	fields := map[string]string{}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(startRaw))
	if err != nil {
		fields["start_time"] = "must be an RFC3339 timestamp"
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(endRaw))
	if err != nil {
		fields["end_time"] = "must be an RFC3339 timestamp"
	}
	if len(fields) > 0 {
		return models.TimeRange{}, appErrors.Validation("malformed timestamps", fields)
	}
	interval := models.TimeRange{Start: start.UTC(), End: end.UTC()}
	if err := validateInterval(interval); err != nil {
		return models.TimeRange{}, err
	}
	return interval, nil
}

func validateInterval(interval models.TimeRange) error {
	if err := interval.Validate(); err != nil {
		return appErrors.Validation("invalid interval", map[string]string{"end_time": "must be after start_time"})
	}
	return nil
}

// normalizeResourceIDs rejects empty or non-positive ids and returns the set sorted and deduplicated.
func normalizeResourceIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, appErrors.Validation("resource set is empty", map[string]string{"resource_ids": "must contain at least 1 item(s)"})
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, appErrors.Validation("invalid resource id", map[string]string{"resource_ids": "must be greater than 0"})
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
