package entity

import "errors"

var (
	// ErrRecordNotFound is returned when a record id does not exist
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordClosed is returned for any mutation of a closed record
	ErrRecordClosed = errors.New("cannot edit closed record")

	// ErrInvalidInput is returned for malformed or incomplete caller input
	ErrInvalidInput = errors.New("invalid input")

	// ErrOperationNotAllowed is returned when a role may not perform an operation at all
	ErrOperationNotAllowed = errors.New("operation not allowed for role")
)
