package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/infrastructure/persistence/sqlite"
)

// RecordRepository implements port.RecordRepository
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) port.RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var (
	insertRecordQuery = fmt.Sprintf(
		"INSERT INTO dmt_records (created_at, created_by_id, %s) VALUES (?, ?%s)",
		columnNames(mutableColumns),
		strings.Repeat(", ?", len(mutableColumns)),
	)

	updateRecordQuery = func() string {
		sets := make([]string, len(mutableColumns))
		for i, c := range mutableColumns {
			sets[i] = c.name + " = ?"
		}
		return fmt.Sprintf("UPDATE dmt_records SET %s WHERE id = ?", strings.Join(sets, ", "))
	}()

	selectRecordQuery = fmt.Sprintf("SELECT %s FROM dmt_records", columnNames(selectColumns))
)

// Create inserts a new record and sets its ID and CreatedAt
func (r *RecordRepository) Create(ctx context.Context, record *entity.Record) error {
	createdAt := r.now()
	args := append([]interface{}{createdAt, record.CreatedByID}, columnValues(mutableColumns, record)...)

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, insertRecordQuery, args...)
	if err != nil {
		r.logger.Error("Failed to create record", zap.Error(err))
		return fmt.Errorf("failed to create record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	record.CreatedAt = createdAt
	return nil
}

// GetByID retrieves a record by ID
func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*entity.Record, error) {
	var row recordRow
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, selectRecordQuery+" WHERE id = ?", id).Scan(row.dests()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get record by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return row.record(), nil
}

// Update writes every mutable column of the record
func (r *RecordRepository) Update(ctx context.Context, record *entity.Record) error {
	args := append(columnValues(mutableColumns, record), record.ID)

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, updateRecordQuery, args...)
	if err != nil {
		r.logger.Error("Failed to update record", zap.Int64("id", record.ID), zap.Error(err))
		return fmt.Errorf("failed to update record: %w", err)
	}
	return requireOneRow(result, record.ID)
}

// SetReportNumber assigns the report number of an existing record
func (r *RecordRepository) SetReportNumber(ctx context.Context, id int64, reportNumber string) error {
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE dmt_records SET report_number = ? WHERE id = ?", reportNumber, id)
	if err != nil {
		r.logger.Error("Failed to set report number", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set report number: %w", err)
	}
	return requireOneRow(result, id)
}

// List returns records matching filter ordered by ID
func (r *RecordRepository) List(ctx context.Context, filter entity.RecordFilter) ([]*entity.Record, error) {
	var where []string
	var args []interface{}

	if filter.IsClosed != nil {
		where = append(where, "is_closed = ?")
		args = append(args, *filter.IsClosed)
	}
	if filter.CreatedByID != nil {
		where = append(where, "created_by_id = ?")
		args = append(args, *filter.CreatedByID)
	}
	if filter.PartNumberID != nil {
		where = append(where, "part_number_id = ?")
		args = append(args, *filter.PartNumberID)
	}
	if filter.CreatedAfter != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.CreatedAfter.UTC())
	}
	if filter.CreatedBefore != nil {
		where = append(where, "created_at <= ?")
		args = append(args, filter.CreatedBefore.UTC())
	}

	query := selectRecordQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Skip)

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list records", zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := make([]*entity.Record, 0)
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(row.dests()...); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, row.record())
	}

	return records, rows.Err()
}

// Delete removes a record. History rows go with it by cascade.
func (r *RecordRepository) Delete(ctx context.Context, id int64) error {
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, "DELETE FROM dmt_records WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete record", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return requireOneRow(result, id)
}

func requireOneRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", entity.ErrRecordNotFound, id)
	}
	return nil
}

// Verify interface compliance
var _ port.RecordRepository = (*RecordRepository)(nil)
