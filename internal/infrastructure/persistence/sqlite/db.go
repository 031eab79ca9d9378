// Package sqlite carries database transactions through context.Context so
// repositories join whatever unit of work the service layer opened.
package sqlite

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/pkg/database"
)

type txKey struct{}

// DB implements port.TransactionManager over a shared *sql.DB
type DB struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDB creates a transaction manager for sqlDB
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{db: sqlDB, logger: logger}
}

// WithTransaction runs fn in a transaction carried by the context passed to
// it. A call made while ctx already carries a transaction joins it, so the
// outermost call decides commit or rollback.
func (m *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ExtractTx(ctx) != nil {
		return fn(ctx)
	}
	return database.RunInTx(ctx, m.db, m.logger, func(tx *sql.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// ExtractTx returns the transaction carried by ctx, if any
func ExtractTx(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// Executor is the query surface shared by *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Conn returns the transaction in ctx, or db when there is none
func Conn(ctx context.Context, db *sql.DB) Executor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return db
}

var _ port.TransactionManager = (*DB)(nil)
