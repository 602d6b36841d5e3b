package errors

import "errors"

var (
	ErrNotFound = errors.New("contact not found")

	ErrInvalidID = errors.New("invalid contact ID format")

	// ErrPermissionDenied is returned when the store refuses access to contacts.
	ErrPermissionDenied = errors.New("permission to read contacts denied")
)
