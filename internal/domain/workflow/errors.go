package workflow

import (
	"errors"
	"fmt"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

var (
	// ErrInvalidTransition is returned when a stage transition is not allowed
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrInvalidStage is returned when a stage is not valid
	ErrInvalidStage = errors.New("invalid stage")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// ViolationError names the first field that blocks closing a record
type ViolationError struct {
	Field  entity.Field
	Reason string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("cannot close record: %s", e.Reason)
}

func (e *ViolationError) Unwrap() error {
	return ErrGuardFailed
}
