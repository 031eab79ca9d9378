package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Migration is one versioned schema script
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies versioned .sql scripts and records them in schema_migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)
`

// RunMigrations applies every migration in fsys that has not been applied
// yet, in version order. Each file runs in its own transaction.
func (m *Migrator) RunMigrations(ctx context.Context, fsys fs.FS) error {
	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	pending, err := m.pending(ctx, migrations)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.Info("Database schema is up to date", zap.Int("migrations", len(migrations)))
		return nil
	}

	for _, mig := range pending {
		m.logger.Info("Applying migration", zap.Int("version", mig.Version), zap.String("name", mig.Name))
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}
	}

	m.logger.Info("Database migrations completed", zap.Int("applied", len(pending)))
	return nil
}

func (m *Migrator) pending(ctx context.Context, migrations []Migration) ([]Migration, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan applied migration: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []Migration
	for _, mig := range migrations {
		if !applied[mig.Version] {
			out = append(out, mig)
		}
	}
	return out, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	return RunInTx(ctx, m.db.DB, m.logger, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mig.Version, mig.Name,
		); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

// LoadMigrations reads every .sql file in fsys, ordered by version.
// File names start with the version, e.g. "001_initial_schema.sql".
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	var migrations []Migration
	seen := make(map[int]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".sql" {
			return nil
		}

		mig, err := parseMigrationName(path.Base(p))
		if err != nil {
			return err
		}
		if prev, dup := seen[mig.Version]; dup {
			return fmt.Errorf("duplicate migration version %d: %s and %s", mig.Version, prev, p)
		}
		seen[mig.Version] = p

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", p, err)
		}
		mig.SQL = string(content)

		migrations = append(migrations, mig)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func parseMigrationName(filename string) (Migration, error) {
	base := strings.TrimSuffix(filename, ".sql")
	prefix, name, _ := strings.Cut(base, "_")

	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return Migration{}, fmt.Errorf("invalid migration filename format: %s", filename)
	}
	return Migration{Version: version, Name: name}, nil
}
