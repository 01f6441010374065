package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist or
	// is no longer active.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a mutation targets an occurrence that has
	// already resolved; callers must re-fetch the snapshot before retrying.
	ErrConflict = errors.New("application: conflict")
	// ErrIntakeInFlight is returned when a mark-taken request arrives for an
	// occurrence key that already has an outstanding submission.
	ErrIntakeInFlight = errors.New("application: intake submission in flight")
	// ErrUnavailable is returned when the record store cannot be reached.
	// The failure is retryable; no automatic retry is performed here.
	ErrUnavailable = errors.New("application: store unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
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
