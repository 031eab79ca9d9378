package workflow

import "github.com/garyjia/dmt-records/internal/domain/entity"

var lifecycle StateMachineBuilder

// Built in init: Configure is reached through an interface, which package
// variable ordering does not follow.
func init() {
	lifecycle = newLifecycle()
}

func newLifecycle() StateMachineBuilder {
	b := NewBuilder()
	for _, stage := range OpenStages {
		b.Configure(stage).
			Permit(TriggerEdit, stage).
			PermitIf(TriggerClose, StageClosed, closureGuard)
	}
	b.Configure(StageClosed)
	return b
}

// StageOf derives the stage of a stored record from what has been filled in
func StageOf(r *entity.Record) Stage {
	switch {
	case r.IsClosed:
		return StageClosed
	case r.FinalDispositionID != nil:
		return StageDispositioned
	case !r.Analysis.IsEmpty():
		return StageAnalyzed
	case !r.DefectDescription.IsEmpty():
		return StageDefectLogged
	default:
		return StageCreated
	}
}

// NewMachine returns a record lifecycle machine positioned at the record's stage
func NewMachine(r *entity.Record) StateMachine {
	return lifecycle.Build(StageOf(r))
}

// TriggerFor picks the trigger a change set fires
func TriggerFor(p *entity.Patch) Trigger {
	if p.ClosesRecord() {
		return TriggerClose
	}
	return TriggerEdit
}
