// Package container wires the DMT records service together and manages its
// lifecycle.
package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/application/service"
	"github.com/garyjia/dmt-records/internal/config"
	"github.com/garyjia/dmt-records/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/garyjia/dmt-records/internal/interfaces/http"
	"github.com/garyjia/dmt-records/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	translator port.TranslationProvider

	// Application
	services *ServiceBundle

	// Interfaces
	server *httpapi.Server

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Record  port.RecordRepository
	History port.HistoryRepository
	User    port.UserRepository
	Catalog port.CatalogRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Translation service.TranslationService
	Record      service.RecordService
	Export      service.ExportService
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Database, migrations and repositories
// 2. Translation provider
// 3. Application services
// 4. Users and catalog seed data
// 5. HTTP server
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("path", c.config.Database.Path))

	if err := c.initExternalClients(); err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("Translation provider initialized", zap.String("provider", c.config.Translation.Provider))

	c.initServices()
	c.logger.Info("Application services initialized")

	if err := c.seed(ctx); err != nil {
		return fmt.Errorf("failed to seed reference data: %w", err)
	}

	if err := c.initServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	if !c.ready.Load() {
		return fmt.Errorf("container not started")
	}
	return c.server.Start(ctx)
}

// Close releases all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if err := errors.Join(errs...); err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}

	c.logger.Info("Container closed")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr
	c.repositories = ProvideRepositories(c.db, c.logger)
	return nil
}

func (c *Container) initExternalClients() error {
	provider, err := ProvideTranslationProvider(&c.config.Translation, c.logger)
	if err != nil {
		return err
	}
	c.translator = provider
	return nil
}

func (c *Container) initServices() {
	c.services = ProvideServices(&ServiceDeps{
		Repos:       c.repositories,
		TxManager:   c.txManager,
		Provider:    c.translator,
		Writers:     ProvideReportWriters(),
		Translation: &c.config.Translation,
		Logger:      c.logger,
	})
}

func (c *Container) seed(ctx context.Context) error {
	if err := SyncUsers(ctx, c.repositories.User, c.config.Auth.Tokens); err != nil {
		return err
	}
	c.logger.Info("Users synchronized", zap.Int("count", len(c.config.Auth.Tokens)))

	n, err := SeedCatalogs(ctx, c.repositories.Catalog, c.config.Seed.Catalogs)
	if err != nil {
		return err
	}
	c.logger.Info("Catalogs seeded", zap.Int("items", n))
	return nil
}

func (c *Container) initServer() error {
	auth, err := ProvideAuthenticator(c.config.Auth.Tokens)
	if err != nil {
		return err
	}
	if len(auth) == 0 {
		c.logger.Warn("No auth tokens configured; every API request will be rejected")
	}

	srv := c.config.Server
	c.server = httpapi.NewServer(
		httpapi.ServerConfig{
			Host:            srv.Host,
			Port:            srv.Port,
			ReadTimeout:     srv.ReadTimeout,
			WriteTimeout:    srv.WriteTimeout,
			ShutdownTimeout: srv.ShutdownTimeout,
			Debug:           c.config.Logger.Level == "debug",
		},
		httpapi.Services{
			Records: c.services.Record,
			Exports: c.services.Export,
		},
		auth,
		c.healthChecks(),
		&zapLoggerAdapter{logger: c.logger},
	)
	return nil
}

func (c *Container) healthChecks() []httpapi.HealthCheck {
	return []httpapi.HealthCheck{
		{Name: "database", Critical: true, Check: c.db.PingContext},
		{Name: "translation:" + c.services.Translation.Provider(), Check: c.services.Translation.Check},
	}
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
