// Package container wires the approval engine's components together and owns
// their lifecycle.
package container

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/application/effects"
	"github.com/garyjia/finance-approval/internal/application/observation"
	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/application/service"
	"github.com/garyjia/finance-approval/internal/application/workflow"
	"github.com/garyjia/finance-approval/internal/config"
	"github.com/garyjia/finance-approval/internal/infrastructure/export"
	infraLark "github.com/garyjia/finance-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/finance-approval/internal/infrastructure/storage"
	"github.com/garyjia/finance-approval/internal/infrastructure/worker"
	httpServer "github.com/garyjia/finance-approval/internal/interfaces/http"
	"github.com/garyjia/finance-approval/migrations"
	"github.com/garyjia/finance-approval/pkg/database"
	"github.com/garyjia/finance-approval/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Documents    *repository.DocumentRepository
	History      *repository.HistoryRepository
	Observations *repository.ObservationRepository
	Payables     *repository.PayableRepository
}

// WorkflowBundle holds the engine and the services it drives.
type WorkflowBundle struct {
	Engine       workflow.WorkflowEngine
	Observations *observation.Service
	Effects      *effects.Dispatcher
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
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

	if _, err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &RepositoryBundle{
		Documents:    repository.NewDocumentRepository(db.DB, logger),
		History:      repository.NewHistoryRepository(db.DB, logger),
		Observations: repository.NewObservationRepository(db.DB, logger),
		Payables:     repository.NewPayableRepository(db.DB, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
	)
}

// ProvideWorkflow builds the observation service, the side-effect dispatcher and the engine.
func ProvideWorkflow(
	cfg *config.WorkflowConfig,
	repos *RepositoryBundle,
	tx port.TransactionManager,
	publisher dispatcher.Publisher,
	logger *zap.Logger,
) (*WorkflowBundle, error) {
	if repos == nil || tx == nil {
		return nil, fmt.Errorf("repositories and transaction manager are required")
	}
	kv := utils.NewKVLogger(logger.Named("workflow"))

	fx := effects.NewDispatcher(repos.Documents, repos.Payables, tx,
		effects.WithDueDays(cfg.PayableDueDays),
		effects.WithPublisher(publisher),
		effects.WithLogger(kv),
	)
	obs := observation.NewService(repos.Documents, repos.Observations, tx, publisher, kv)
	engine := workflow.NewEngine(repos.Documents, repos.History, tx, obs, fx,
		workflow.WithDispatcher(publisher),
		workflow.WithLogger(kv),
	)

	return &WorkflowBundle{
		Engine:       engine,
		Observations: obs,
		Effects:      fx,
	}, nil
}

// ProvideMessageSender returns a Lark messenger, or nil when Lark is not configured.
func ProvideMessageSender(cfg *config.LarkConfig, logger *zap.Logger) port.MessageSender {
	larkCfg := infraLark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveIDType: cfg.ReceiveIDType,
	}
	if !larkCfg.Enabled() {
		logger.Info("Lark credentials not set, notifications will only be logged")
		return nil
	}

	sdk := infraLark.NewSDKClient(larkCfg, logger)
	return infraLark.NewMessenger(sdk, larkCfg.ReceiveIDType, logger)
}

// ProvideNotifications subscribes the notification handlers to the dispatcher.
func ProvideNotifications(cfg *config.LarkConfig, d dispatcher.Dispatcher, logger *zap.Logger) service.NotificationService {
	notifier := service.NewNotificationService(
		ProvideMessageSender(cfg, logger),
		cfg.RecipientsByRole(),
		utils.NewKVLogger(logger.Named("notify")),
	)
	notifier.Register(d)
	return notifier
}

// ProvideExport creates the workbook exporter and the archive it writes to.
func ProvideExport(cfg *config.ExportConfig, logger *zap.Logger) (*export.Exporter, *storage.Archive) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = "exports"
	}
	return export.NewExporter(logger), storage.NewArchive(dir, logger)
}

// ProvideHTTPServer creates the API server over the application services.
func ProvideHTTPServer(cfg *config.ServerConfig, services httpServer.Services, logger *zap.Logger) *httpServer.Server {
	return httpServer.NewServer(httpServer.ServerConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Mode:            cfg.Mode,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, services, utils.NewKVLogger(logger.Named("http")))
}

// ProvideWorkers registers the payable reconciler unless its interval is zero.
func ProvideWorkers(cfg *config.WorkflowConfig, repos *RepositoryBundle, wf *WorkflowBundle, logger *zap.Logger) *worker.Manager {
	m := worker.NewManager(logger.Named("worker"))
	if cfg.ReconcileInterval <= 0 {
		return m
	}

	rc := worker.DefaultReconcilerConfig()
	rc.Interval = cfg.ReconcileInterval
	m.Register(worker.NewPayableReconciler(rc, repos.Documents, repos.Payables, wf.Effects, logger.Named("reconciler")))
	return m
}
