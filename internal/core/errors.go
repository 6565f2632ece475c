package core

import "errors"

// Validation errors. All of them satisfy errors.Is(err, ErrValidation) so
// callers can classify without enumerating.
var (
	ErrValidation = errors.New("validation error")

	ErrInvalidAmount      = validationError("invalid amount")
	ErrInvalidType        = validationError("invalid transaction type")
	ErrTypeMismatch       = validationError("transaction type disagrees with amount sign")
	ErrEmptyName          = validationError("empty customer name")
	ErrNameTooLong        = validationError("customer name too long (max 100 characters)")
	ErrEmptyVillage       = validationError("empty village name")
	ErrVillageTooLong     = validationError("village name too long (max 100 characters)")
	ErrContactTooLong     = validationError("contact number too long (max 20 characters)")
	ErrMissingCustomer    = validationError("missing customer reference")
	ErrDescriptionTooLong = validationError("description too long (max 200 characters)")
)

// Operational errors.
var (
	// ErrNotFound is returned when a referenced customer or transaction
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a balance update loses a version check
	// against a concurrent mutation.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrBackendUnavailable wraps storage or remote-service failures that
	// are not the caller's fault.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

type wrappedValidation struct {
	msg string
}

func (e *wrappedValidation) Error() string { return e.msg }

func (e *wrappedValidation) Is(target error) bool { return target == ErrValidation }

func validationError(msg string) error {
	return &wrappedValidation{msg: msg}
}
