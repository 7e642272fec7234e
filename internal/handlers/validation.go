package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/go-playground/validator/v10"
)

// ValidationErrorResponse represents a validation error with field-level details
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("stop_reason", func(fl validator.FieldLevel) bool {
		return models.StopReason(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("event_status", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == models.StatusOperating || s == models.StatusStopped
	})
	return v
}

// ValidateRequest validates a request struct and reports the first failing field
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fmt.Errorf("validation failed: %s: %s", ve[0].Field(), formatValidationError(ve[0]))
	}
	return fmt.Errorf("validation failed: %w", err)
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "stop_reason":
		return "must be one of: " + joinStopReasons()
	case "event_status":
		return fmt.Sprintf("must be %s or %s", models.StatusOperating, models.StatusStopped)
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

func joinStopReasons() string {
	names := make([]string, 0, len(models.StopReasons))
	for _, r := range models.StopReasons {
		names = append(names, string(r))
	}
	return strings.Join(names, " ")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339 and zone-less forms; the latter are read as UTC
func parseTimestamp(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s must be an ISO-8601 timestamp", models.ErrValidation, field)
}

// parseOptionalTimestamp returns nil for an empty value
func parseOptionalTimestamp(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseTimestamp(field, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
