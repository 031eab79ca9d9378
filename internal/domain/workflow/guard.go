package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// Fields that must already be stored before a record can be closed.
// Supplying them in the closing change set does not count, and clearing
// them there is rejected.
var storedBeforeClose = []struct {
	field entity.Field
	value func(*entity.Record) *int64
}{
	{entity.FieldFinalDispositionID, func(r *entity.Record) *int64 { return r.FinalDispositionID }},
	{entity.FieldFailureCodeID, func(r *entity.Record) *int64 { return r.FailureCodeID }},
	{entity.FieldEngineerID, func(r *entity.Record) *int64 { return r.EngineerID }},
}

// Fields the closing change set itself must carry
var suppliedOnClose = []entity.Field{
	entity.FieldDispositionApprovalDate,
	entity.FieldDispositionApprovedByID,
}

// ValidateClosure checks that record may be closed by patch. The first
// failing field is reported as a *ViolationError.
func ValidateClosure(record *entity.Record, patch *entity.Patch) error {
	for _, req := range storedBeforeClose {
		if req.value(record) == nil {
			return &ViolationError{
				Field:  req.field,
				Reason: fmt.Sprintf("%s must be set before closing", req.field),
			}
		}
		if patch != nil && patch.Clears(req.field) {
			return &ViolationError{
				Field:  req.field,
				Reason: fmt.Sprintf("%s cannot be cleared when closing", req.field),
			}
		}
	}

	for _, f := range suppliedOnClose {
		if patch == nil || !patch.Has(f) {
			return &ViolationError{
				Field:  f,
				Reason: fmt.Sprintf("%s is required to close", f),
			}
		}
	}

	return nil
}

func closureGuard(_ context.Context, s Subject) error {
	return ValidateClosure(s.Record, s.Patch)
}
