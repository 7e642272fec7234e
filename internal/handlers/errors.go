package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/BradenHooton/vectradex/internal/models"
	pkghttp "github.com/BradenHooton/vectradex/pkg/http"
)

// writeServiceError maps a service error onto the JSON error contract
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "bad_request", "Invalid request", detail(err, models.ErrValidation))
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrMachineInUse):
		pkghttp.WriteConflict(w, "Machine has production events and cannot be deleted")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteErrorWithDetails(w, http.StatusConflict, "conflict", "Resource already exists", detail(err, models.ErrConflict))
	case errors.Is(err, models.ErrRateLimited):
		pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Insufficient permissions")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// detail strips the sentinel prefix from a wrapped error message
func detail(err, sentinel error) string {
	msg := err.Error()
	if msg == sentinel.Error() {
		return ""
	}
	return strings.TrimPrefix(msg, sentinel.Error()+": ")
}
