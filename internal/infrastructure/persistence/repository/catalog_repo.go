package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/infrastructure/persistence/sqlite"
)

// CatalogRepository implements port.CatalogRepository over the lookup tables
type CatalogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *sql.DB, logger *zap.Logger) port.CatalogRepository {
	return &CatalogRepository{
		db:     db,
		logger: logger,
	}
}

// Names maps the IDs of one catalog to their item names
func (r *CatalogRepository) Names(ctx context.Context, catalog entity.Catalog) (map[int64]string, error) {
	// Table names cannot be bound; only known catalogs reach the query.
	if !catalog.IsValid() {
		return nil, fmt.Errorf("%w: unknown catalog %q", entity.ErrInvalidInput, catalog)
	}

	names, err := queryNames(ctx, sqlite.Conn(ctx, r.db), fmt.Sprintf("SELECT id, item_name FROM %s", catalog))
	if err != nil {
		r.logger.Error("Failed to load catalog names", zap.String("catalog", string(catalog)), zap.Error(err))
		return nil, err
	}
	return names, nil
}

// Ensure inserts a catalog item keyed by item number, refreshing its name, and returns its ID
func (r *CatalogRepository) Ensure(ctx context.Context, catalog entity.Catalog, itemNumber, itemName string) (int64, error) {
	if !catalog.IsValid() {
		return 0, fmt.Errorf("%w: unknown catalog %q", entity.ErrInvalidInput, catalog)
	}

	conn := sqlite.Conn(ctx, r.db)

	// Refresh first so an existing item number never draws from the
	// AUTOINCREMENT sequence.
	var id int64
	err := conn.QueryRowContext(ctx,
		fmt.Sprintf("UPDATE %s SET item_name = ? WHERE item_number = ? RETURNING id", catalog),
		itemName, itemNumber).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = conn.QueryRowContext(ctx,
			fmt.Sprintf("INSERT INTO %s (item_number, item_name) VALUES (?, ?) RETURNING id", catalog),
			itemNumber, itemName).Scan(&id)
	}
	if err != nil {
		r.logger.Error("Failed to ensure catalog item",
			zap.String("catalog", string(catalog)),
			zap.String("item_number", itemNumber),
			zap.Error(err))
		return 0, fmt.Errorf("failed to ensure %s item: %w", catalog, err)
	}
	return id, nil
}

func queryNames(ctx context.Context, conn sqlite.Executor, query string) (map[int64]string, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// Verify interface compliance
var _ port.CatalogRepository = (*CatalogRepository)(nil)
