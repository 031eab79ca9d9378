package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Ensure inserts the user or refreshes its name, employee number and role
func (r *UserRepository) Ensure(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, employee_number, full_name, role)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_number = excluded.employee_number,
			full_name = excluded.full_name,
			role = excluded.role
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		user.ID,
		user.EmployeeNumber,
		user.FullName,
		string(user.Role),
	)
	if err != nil {
		r.logger.Error("Failed to ensure user", zap.Int64("id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var user entity.User
	var role string

	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT id, employee_number, full_name, role FROM users WHERE id = ?", id,
	).Scan(&user.ID, &user.EmployeeNumber, &user.FullName, &role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Role = entity.Role(role)
	return &user, nil
}

// Names maps every user ID to its full name
func (r *UserRepository) Names(ctx context.Context) (map[int64]string, error) {
	return queryNames(ctx, sqlite.Conn(ctx, r.db), "SELECT id, full_name FROM users")
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
