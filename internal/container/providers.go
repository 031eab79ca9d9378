package container

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/application/service"
	"github.com/garyjia/dmt-records/internal/config"
	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/infrastructure/export"
	"github.com/garyjia/dmt-records/internal/infrastructure/external/libretranslate"
	"github.com/garyjia/dmt-records/internal/infrastructure/external/openai"
	"github.com/garyjia/dmt-records/internal/infrastructure/persistence/repository"
	"github.com/garyjia/dmt-records/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/garyjia/dmt-records/internal/interfaces/http"
	"github.com/garyjia/dmt-records/migrations"
	"github.com/garyjia/dmt-records/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) *RepositoryBundle {
	return &RepositoryBundle{
		Record:  repository.NewRecordRepository(db.DB, logger),
		History: repository.NewHistoryRepository(db.DB, logger),
		User:    repository.NewUserRepository(db.DB, logger),
		Catalog: repository.NewCatalogRepository(db.DB, logger),
	}
}

// ProvideTranslationProvider selects the configured translation backend.
// A nil provider means text is stored untranslated.
func ProvideTranslationProvider(cfg *config.TranslationConfig, logger *zap.Logger) (port.TranslationProvider, error) {
	switch cfg.Provider {
	case config.ProviderLibreTranslate:
		client := &http.Client{Timeout: cfg.Timeout}
		return libretranslate.NewClient(cfg.URL, cfg.APIKey, client, logger), nil
	case config.ProviderOpenAI:
		return openai.NewTranslator(openai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.URL,
		}, logger), nil
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported translation provider %q", cfg.Provider)
	}
}

// ProvideReportWriters returns the export writers keyed by format name.
func ProvideReportWriters() map[string]port.ReportWriter {
	writers := map[string]port.ReportWriter{}
	for _, w := range []port.ReportWriter{export.NewCSVWriter(), export.NewXLSXWriter()} {
		writers[w.Extension()] = w
	}
	return writers
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	Provider    port.TranslationProvider
	Writers     map[string]port.ReportWriter
	Translation *config.TranslationConfig
	Logger      *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) *ServiceBundle {
	logger := &zapLoggerAdapter{logger: deps.Logger}

	translation := service.NewTranslationService(deps.Provider, deps.Translation.Timeout, logger)
	records := service.NewRecordService(
		deps.Repos.Record,
		deps.Repos.History,
		deps.TxManager,
		translation,
		logger,
	)
	exports := service.NewExportService(records, deps.Repos.Catalog, deps.Repos.User, deps.Writers, logger)

	return &ServiceBundle{
		Translation: translation,
		Record:      records,
		Export:      exports,
	}
}

// ProvideAuthenticator maps configured bearer tokens to caller identities.
func ProvideAuthenticator(tokens []config.TokenConfig) (httpapi.StaticTokens, error) {
	auth := make(httpapi.StaticTokens, len(tokens))
	for _, t := range tokens {
		role, err := entity.ParseRole(t.Role)
		if err != nil {
			return nil, err
		}
		auth[t.Token] = entity.Actor{UserID: t.UserID, Role: role}
	}
	return auth, nil
}

// SyncUsers makes every token identity a user row records can reference.
func SyncUsers(ctx context.Context, users port.UserRepository, tokens []config.TokenConfig) error {
	for _, t := range tokens {
		role, err := entity.ParseRole(t.Role)
		if err != nil {
			return err
		}
		user := &entity.User{
			ID:             t.UserID,
			EmployeeNumber: t.EmployeeNumber,
			FullName:       t.FullName,
			Role:           role,
		}
		if user.EmployeeNumber == "" {
			user.EmployeeNumber = fmt.Sprintf("U%04d", t.UserID)
		}
		if err := users.Ensure(ctx, user); err != nil {
			return fmt.Errorf("sync user %d: %w", t.UserID, err)
		}
	}
	return nil
}

// SeedCatalogs ensures the configured lookup items exist. Returns the
// number of items processed.
func SeedCatalogs(ctx context.Context, catalogs port.CatalogRepository, seed map[string][]config.CatalogItem) (int, error) {
	names := make([]string, 0, len(seed))
	for name := range seed {
		names = append(names, name)
	}
	sort.Strings(names)

	var n int
	for _, name := range names {
		catalog := entity.Catalog(name)
		for _, item := range seed[name] {
			if _, err := catalogs.Ensure(ctx, catalog, item.Number, item.Name); err != nil {
				return n, fmt.Errorf("seed %s %s: %w", name, item.Number, err)
			}
			n++
		}
	}
	return n, nil
}
