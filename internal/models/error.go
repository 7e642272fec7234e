package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternalServer = errors.New("internal server error")

	// ErrValidation marks caller input that was rejected before any state changed
	ErrValidation = errors.New("validation failed")

	// Authentication outcomes
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many failed login attempts")

	// Machine registry errors
	ErrMachineInUse = errors.New("machine has production events")
)
