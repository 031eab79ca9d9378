package port

import (
	"context"

	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/domain/event"
)

// RecordRepository defines persistence operations for Record.
// Lookups return (nil, nil) when no row matches.
type RecordRepository interface {
	// Create inserts the record and sets its ID and CreatedAt
	Create(ctx context.Context, record *entity.Record) error

	// GetByID retrieves a record by its ID
	GetByID(ctx context.Context, id int64) (*entity.Record, error)

	// Update writes every mutable column of the record
	Update(ctx context.Context, record *entity.Record) error

	// SetReportNumber assigns the report number of an existing record
	SetReportNumber(ctx context.Context, id int64, reportNumber string) error

	// List returns records matching filter ordered by ID
	List(ctx context.Context, filter entity.RecordFilter) ([]*entity.Record, error)

	// Delete removes a record and its history
	Delete(ctx context.Context, id int64) error
}

// HistoryRepository stores the lifecycle trail of records
type HistoryRepository interface {
	Append(ctx context.Context, e *event.Event) error
	ListByRecordID(ctx context.Context, recordID int64) ([]*event.Event, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	// Ensure inserts or refreshes a user row keyed by ID
	Ensure(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)

	// Names maps user IDs to full names
	Names(ctx context.Context) (map[int64]string, error)
}

// CatalogRepository resolves lookup-table IDs to item names
type CatalogRepository interface {
	Names(ctx context.Context, catalog entity.Catalog) (map[int64]string, error)

	// Ensure inserts or renames an item keyed by item number and returns its ID
	Ensure(ctx context.Context, catalog entity.Catalog, itemNumber, itemName string) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
