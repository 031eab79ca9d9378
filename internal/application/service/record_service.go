package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/domain/event"
	"github.com/garyjia/dmt-records/internal/domain/policy"
	"github.com/garyjia/dmt-records/internal/domain/workflow"
	"github.com/garyjia/dmt-records/pkg/utils"
)

const (
	// DefaultListLimit is used when a listing does not name a limit
	DefaultListLimit = 100
	// MaxListLimit caps a single listing page
	MaxListLimit = 1000

	// ReportNumberBase is added to the record ID to form a default report number
	ReportNumberBase = 1000
)

// RecordService manages DMT records
type RecordService interface {
	Create(ctx context.Context, actor entity.Actor, patch *entity.Patch, lang entity.Language) (*entity.Record, error)
	Get(ctx context.Context, id int64) (*entity.Record, error)
	List(ctx context.Context, filter entity.RecordFilter) ([]*entity.Record, error)
	Update(ctx context.Context, actor entity.Actor, id int64, patch *entity.Patch, lang entity.Language) (*entity.Record, error)
	Delete(ctx context.Context, actor entity.Actor, id int64) (*entity.Record, error)
	History(ctx context.Context, id int64) ([]*event.Event, error)
	AllowedFields(role entity.Role) []entity.Field
}

type recordServiceImpl struct {
	recordRepo  port.RecordRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	translator  TranslationService
	logger      Logger
}

// NewRecordService creates a new RecordService
func NewRecordService(
	recordRepo port.RecordRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	translator TranslationService,
	logger Logger,
) RecordService {
	return &recordServiceImpl{
		recordRepo:  recordRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		translator:  translator,
		logger:      logger,
	}
}

// Create opens a new record on behalf of an Inspector
func (s *recordServiceImpl) Create(ctx context.Context, actor entity.Actor, patch *entity.Patch, lang entity.Language) (*entity.Record, error) {
	if actor.Role != policy.CreateRole {
		return nil, fmt.Errorf("%w: only %s may create records", entity.ErrOperationNotAllowed, policy.CreateRole)
	}
	if err := policy.CheckAgainst(policy.CreateFields(), actor.Role, patch.Fields()); err != nil {
		return nil, err
	}
	if missing := patch.Missing(policy.RequiredOnCreate); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", entity.ErrInvalidInput, joinFields(missing))
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	record := &entity.Record{CreatedByID: actor.UserID}
	if err := applyPatch(record, patch, s.expandText(ctx, patch, lang)); err != nil {
		return nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.recordRepo.Create(ctx, record); err != nil {
			return fmt.Errorf("create record: %w", err)
		}

		if !patch.Has(entity.FieldReportNumber) {
			reportNumber := strconv.FormatInt(ReportNumberBase+record.ID, 10)
			if err := s.recordRepo.SetReportNumber(ctx, record.ID, reportNumber); err != nil {
				return fmt.Errorf("assign report number: %w", err)
			}
			record.ReportNumber = &reportNumber
		}

		e := event.NewEvent(event.TypeRecordCreated, record.ID, actor, map[string]interface{}{
			event.PayloadFields:   fieldNames(patch.Fields()),
			event.PayloadLanguage: string(lang),
			event.PayloadStageTo:  string(workflow.StageOf(record)),
		})
		if err := s.historyRepo.Append(ctx, e); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create record", "error", err, "user_id", actor.UserID)
		return nil, err
	}

	s.logger.Info("Record created",
		"record_id", record.ID,
		"report_number", derefString(record.ReportNumber),
		"user_id", actor.UserID)
	return record, nil
}

// Get retrieves a record by ID
func (s *recordServiceImpl) Get(ctx context.Context, id int64) (*entity.Record, error) {
	record, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %d", entity.ErrRecordNotFound, id)
	}
	return record, nil
}

// List returns one page of records matching filter
func (s *recordServiceImpl) List(ctx context.Context, filter entity.RecordFilter) ([]*entity.Record, error) {
	if filter.Skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", entity.ErrInvalidInput)
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit < 1 || filter.Limit > MaxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", entity.ErrInvalidInput, MaxListLimit)
	}

	records, err := s.recordRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Update applies a partial change set to a stored record. Checks run in
// order: closed record, field permissions, closing requirements. Nothing
// is written unless all of them pass.
//
// Free text is translated before the write transaction opens. The record
// is then re-read under the write lock and every check runs again against
// the stored state.
func (s *recordServiceImpl) Update(ctx context.Context, actor entity.Actor, id int64, patch *entity.Patch, lang entity.Language) (*entity.Record, error) {
	current, err := s.loadOpen(ctx, id)
	if err != nil {
		s.logUpdateFailure(err, actor, id)
		return nil, err
	}

	fields := patch.Fields()
	if len(fields) == 0 {
		return current, nil
	}
	if _, _, err := checkUpdate(ctx, actor, current, patch, fields); err != nil {
		s.logUpdateFailure(err, actor, id)
		return nil, err
	}

	texts := s.expandText(ctx, patch, lang)

	var updated *entity.Record
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.loadOpen(ctx, id)
		if err != nil {
			return err
		}
		from, trigger, err := checkUpdate(ctx, actor, current, patch, fields)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := applyPatch(next, patch, texts); err != nil {
			return err
		}
		if err := s.recordRepo.Update(ctx, next); err != nil {
			return fmt.Errorf("update record: %w", err)
		}

		eventType := event.TypeRecordUpdated
		if trigger == workflow.TriggerClose {
			eventType = event.TypeRecordClosed
		}
		e := event.NewEvent(eventType, id, actor, map[string]interface{}{
			event.PayloadFields:    fieldNames(fields),
			event.PayloadLanguage:  string(lang),
			event.PayloadStageFrom: string(from),
			event.PayloadStageTo:   string(workflow.StageOf(next)),
		})
		if err := s.historyRepo.Append(ctx, e); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		updated = next
		return nil
	})
	if err != nil {
		s.logUpdateFailure(err, actor, id)
		return nil, err
	}

	return updated, nil
}

// loadOpen fetches a record that may still be edited
func (s *recordServiceImpl) loadOpen(ctx context.Context, id int64) (*entity.Record, error) {
	record, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %d", entity.ErrRecordNotFound, id)
	}
	if record.IsClosed {
		return nil, entity.ErrRecordClosed
	}
	return record, nil
}

// checkUpdate runs the permission, value and lifecycle checks for patch
// against current, returning the stage it leaves and the trigger it fires.
func checkUpdate(ctx context.Context, actor entity.Actor, current *entity.Record, patch *entity.Patch, fields []entity.Field) (workflow.Stage, workflow.Trigger, error) {
	if err := policy.Check(actor.Role, fields); err != nil {
		return "", "", err
	}
	if err := validatePatch(patch); err != nil {
		return "", "", err
	}

	machine := workflow.NewMachine(current)
	from := machine.Stage()
	trigger := workflow.TriggerFor(patch)
	if err := machine.Fire(ctx, trigger, workflow.Subject{Record: current, Patch: patch}); err != nil {
		return "", "", err
	}
	return from, trigger, nil
}

func (s *recordServiceImpl) logUpdateFailure(err error, actor entity.Actor, id int64) {
	if isRejection(err) {
		s.logger.Info("Record update rejected", "record_id", id, "role", actor.Role, "reason", err.Error())
		return
	}
	s.logger.Error("Failed to update record", "error", err, "record_id", id)
}

// Delete removes a record. Only Admin may delete; the engine is bypassed.
func (s *recordServiceImpl) Delete(ctx context.Context, actor entity.Actor, id int64) (*entity.Record, error) {
	if actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: only %s may delete records", entity.ErrOperationNotAllowed, entity.RoleAdmin)
	}

	var deleted *entity.Record
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		record, err := s.recordRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get record: %w", err)
		}
		if record == nil {
			return fmt.Errorf("%w: %d", entity.ErrRecordNotFound, id)
		}
		if err := s.recordRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
		deleted = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Record deleted", "record_id", id, "user_id", actor.UserID)
	return deleted, nil
}

// History returns the lifecycle trail of a record, oldest first
func (s *recordServiceImpl) History(ctx context.Context, id int64) ([]*event.Event, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.historyRepo.ListByRecordID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return events, nil
}

// AllowedFields exposes the write allow-list of role
func (s *recordServiceImpl) AllowedFields(role entity.Role) []entity.Field {
	return policy.AllowedFields(role).Fields()
}

type expandedText struct {
	field entity.Field
	text  entity.LocalizedText
}

// expandText translates every non-blank free-text member of patch.
// Text that is blank once control characters are stripped is skipped.
func (s *recordServiceImpl) expandText(ctx context.Context, patch *entity.Patch, lang entity.Language) []expandedText {
	var out []expandedText
	for _, in := range patch.TextInputs() {
		text := utils.SanitizeText(in.Text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, expandedText{field: in.Field, text: s.translator.Expand(ctx, text, lang)})
	}
	return out
}

// applyPatch writes patch onto record using the already expanded free text
func applyPatch(record *entity.Record, patch *entity.Patch, texts []expandedText) error {
	for _, t := range texts {
		if err := entity.SetText(record, t.field, t.text); err != nil {
			return err
		}
	}
	patch.ApplyDirect(record)
	return nil
}

var maxLengths = []struct {
	field entity.Field
	value func(*entity.Patch) *string
	max   int
}{
	{entity.FieldReportNumber, func(p *entity.Patch) *string { return p.ReportNumber.Value }, 100},
	{entity.FieldOperation, func(p *entity.Patch) *string { return p.Operation.Value }, 255},
	{entity.FieldSerialNumber, func(p *entity.Patch) *string { return p.SerialNumber.Value }, 255},
	{entity.FieldResponsibleDepartment, func(p *entity.Patch) *string { return p.ResponsibleDepartment.Value }, 255},
	{entity.FieldSDRNumber, func(p *entity.Patch) *string { return p.SDRNumber.Value }, 255},
}

var amounts = []struct {
	field entity.Field
	value func(*entity.Patch) *float64
}{
	{entity.FieldReworkHours, func(p *entity.Patch) *float64 { return p.ReworkHours.Value }},
	{entity.FieldMaterialScrapCost, func(p *entity.Patch) *float64 { return p.MaterialScrapCost.Value }},
	{entity.FieldOtherCost, func(p *entity.Patch) *float64 { return p.OtherCost.Value }},
}

func validatePatch(p *entity.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, c := range maxLengths {
		if v := c.value(p); v != nil {
			if err := utils.ValidateMaxLength(string(c.field), *v, c.max); err != nil {
				return fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
			}
		}
	}
	for _, c := range amounts {
		if v := c.value(p); v != nil {
			if err := utils.ValidateNonNegative(string(c.field), *v); err != nil {
				return fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
			}
		}
	}
	return nil
}

func isRejection(err error) bool {
	var forbidden *policy.ForbiddenError
	var violation *workflow.ViolationError
	return errors.As(err, &forbidden) ||
		errors.As(err, &violation) ||
		errors.Is(err, entity.ErrRecordClosed) ||
		errors.Is(err, entity.ErrRecordNotFound) ||
		errors.Is(err, entity.ErrInvalidInput)
}

func fieldNames(fields []entity.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}

func joinFields(fields []entity.Field) string {
	return strings.Join(fieldNames(fields), ", ")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
