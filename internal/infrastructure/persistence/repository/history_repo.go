package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/domain/event"
	"github.com/garyjia/dmt-records/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one lifecycle event and sets its Seq
func (r *HistoryRepository) Append(ctx context.Context, e *event.Event) error {
	fields, err := json.Marshal(e.GetPayloadStrings(event.PayloadFields))
	if err != nil {
		return fmt.Errorf("failed to encode history fields: %w", err)
	}

	query := `
		INSERT INTO record_history (
			event_id, record_id, user_id, role, action,
			stage_before, stage_after, fields, language, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		e.ID,
		e.RecordID,
		e.UserID,
		string(e.Role),
		string(e.Type),
		nullText(e.GetPayloadString(event.PayloadStageFrom)),
		nullText(e.GetPayloadString(event.PayloadStageTo)),
		string(fields),
		nullText(e.GetPayloadString(event.PayloadLanguage)),
		e.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to append history", zap.Int64("record_id", e.RecordID), zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	e.Seq = seq
	return nil
}

// ListByRecordID retrieves the history of a record, oldest first
func (r *HistoryRepository) ListByRecordID(ctx context.Context, recordID int64) ([]*event.Event, error) {
	query := `
		SELECT id, event_id, record_id, user_id, role, action,
			stage_before, stage_after, fields, language, created_at
		FROM record_history
		WHERE record_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, recordID)
	if err != nil {
		r.logger.Error("Failed to list history", zap.Int64("record_id", recordID), zap.Error(err))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	events := make([]*event.Event, 0)
	for rows.Next() {
		var (
			e                      event.Event
			role, action, fieldsJS string
			stageFrom, stageTo     sql.NullString
			language               sql.NullString
		)
		if err := rows.Scan(
			&e.Seq,
			&e.ID,
			&e.RecordID,
			&e.UserID,
			&role,
			&action,
			&stageFrom,
			&stageTo,
			&fieldsJS,
			&language,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		var fields []string
		if err := json.Unmarshal([]byte(fieldsJS), &fields); err != nil {
			return nil, fmt.Errorf("failed to decode history fields: %w", err)
		}

		e.Role = entity.Role(role)
		e.Type = event.Type(action)
		e.Timestamp = e.Timestamp.UTC()
		e.Payload = map[string]interface{}{event.PayloadFields: fields}
		if stageFrom.Valid {
			e.Payload[event.PayloadStageFrom] = stageFrom.String
		}
		if stageTo.Valid {
			e.Payload[event.PayloadStageTo] = stageTo.String
		}
		if language.Valid {
			e.Payload[event.PayloadLanguage] = language.String
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
