package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal's resolved role
	// or identity does not permit the operation. Never retried.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidState is returned when an operation targets an entity whose
	// lifecycle state is incompatible, e.g. approving an already approved
	// booking. Indicates a stale local view; re-sync rather than retry.
	ErrInvalidState = errors.New("application: invalid state")
	// ErrAlreadyExists is returned when a write conflicts with an existing
	// record, e.g. two bookings racing for the same slot.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrBackendUnavailable is returned when the storage or provisioning
	// backend cannot be reached. The only error class eligible for retry.
	ErrBackendUnavailable = errors.New("application: backend unavailable")
)

// ValidationError captures field level validation issues that callers can
// surface to users. Always resolved locally, never retried.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
