package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/application/service"
	"github.com/garyjia/finance-approval/internal/config"
	"github.com/garyjia/finance-approval/internal/infrastructure/export"
	"github.com/garyjia/finance-approval/internal/infrastructure/storage"
	"github.com/garyjia/finance-approval/internal/infrastructure/worker"
	httpServer "github.com/garyjia/finance-approval/internal/interfaces/http"
	"github.com/garyjia/finance-approval/pkg/database"
	"github.com/garyjia/finance-approval/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	db           *DatabaseBundle
	repositories *RepositoryBundle

	dispatcher    dispatcher.Dispatcher
	workflow      *WorkflowBundle
	documents     service.DocumentService
	notifications service.NotificationService

	exporter *export.Exporter
	archive  *storage.Archive
	server   *httpServer.Server
	workers  *worker.Manager

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a container. Call Start to initialize it.
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

// Start initializes all components without serving or starting workers:
// 1. Database, migrations and repositories
// 2. Event dispatcher
// 3. Workflow engine, observations and side effects
// 4. Application services and notification handlers
// 5. Export, the HTTP server and the worker manager
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

	db, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db

	repos, err := ProvideRepositories(db.DB, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	c.repositories = repos
	c.logger.Info("Database initialized", zap.String("path", c.config.Database.Path))

	c.dispatcher = ProvideDispatcher(c.logger)

	wf, err := ProvideWorkflow(&c.config.Workflow, repos, db.TransactionMgr, c.dispatcher, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize workflow: %w", err)
	}
	c.workflow = wf
	c.logger.Info("Workflow engine initialized")

	c.documents = service.NewDocumentService(
		repos.Documents,
		repos.History,
		repos.Observations,
		repos.Payables,
		c.dispatcher,
		utils.NewKVLogger(c.logger.Named("documents")),
	)
	c.notifications = ProvideNotifications(&c.config.Lark, c.dispatcher, c.logger)

	c.exporter, c.archive = ProvideExport(&c.config.Export, c.logger)
	c.server = ProvideHTTPServer(&c.config.Server, httpServer.Services{
		Documents:    c.documents,
		Engine:       wf.Engine,
		Observations: wf.Observations,
		Effects:      wf.Effects,
		Exporter:     c.exporter,
	}, c.logger)

	c.workers = ProvideWorkers(&c.config.Workflow, repos, wf, c.logger)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// StartWorkers starts the background workers. Only the long-running server calls it.
func (c *Container) StartWorkers(ctx context.Context) error {
	if !c.ready.Load() {
		return fmt.Errorf("container not started")
	}
	return c.workers.StartAll(ctx)
}

// Close shuts down all components in reverse order.
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
			errs = append(errs, fmt.Errorf("stop http server: %w", err))
		}
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	// Drains in-flight notifications before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	switch {
	case c.db == nil:
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	default:
		if err := c.db.DB.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	}

	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("worker count: %d, running: %t", c.workers.Count(), c.workers.IsRunning()),
		}
	}

	if c.workflow != nil {
		status.Components["workflow"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["workflow"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	return status
}

// Database returns the underlying database handle.
func (c *Container) Database() *database.DB {
	return c.db.DB
}

// TransactionManager returns the ctx-carried transaction manager.
func (c *Container) TransactionManager() port.TransactionManager {
	return c.db.TransactionMgr
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Workflow returns the engine with its observation and side-effect services.
func (c *Container) Workflow() *WorkflowBundle {
	return c.workflow
}

// Documents returns the document service.
func (c *Container) Documents() service.DocumentService {
	return c.documents
}

// Exporter returns the workbook exporter.
func (c *Container) Exporter() *export.Exporter {
	return c.exporter
}

// Archive returns the export archive.
func (c *Container) Archive() *storage.Archive {
	return c.archive
}

// Server returns the HTTP server.
func (c *Container) Server() *httpServer.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
