package workflow

import (
	"context"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// Subject is what a guard inspects: the stored record and the incoming change set
type Subject struct {
	Record *entity.Record
	Patch  *entity.Patch
}

// StateMachine tracks the current stage of one record and validates transitions
type StateMachine interface {
	// Stage returns the current stage
	Stage() Stage

	// CanFire returns true if the trigger is configured for the current stage
	CanFire(trigger Trigger) bool

	// Fire attempts the trigger against subject, moving to the new stage if allowed
	Fire(ctx context.Context, trigger Trigger, subject Subject) error

	// PermittedTriggers returns all triggers configured for the current stage
	PermittedTriggers() []Trigger
}
