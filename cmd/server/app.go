package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ednovo/shelf-api/internal/config"
	"github.com/ednovo/shelf-api/internal/events"
	"github.com/ednovo/shelf-api/internal/platform/assets"
	"github.com/ednovo/shelf-api/internal/platform/postgres"
	"github.com/ednovo/shelf-api/internal/service"
	"github.com/ednovo/shelf-api/internal/service/auth"
	"github.com/ednovo/shelf-api/internal/store"
	"github.com/ednovo/shelf-api/internal/task"
)

// application holds the shared application dependencies to simplify wiring
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore       store.UserStore
	collectionStore store.CollectionStore
	contentStore    store.ContentStore
	taxonomyStore   store.TaxonomyStore

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	courseService    service.CourseService
	assetStore       assets.AssetStore

	// Background work
	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication creates an application instance with all dependencies
// initialized. The configuration, logger, and database connection must be
// established before calling this.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.collectionStore = postgres.NewPostgresCollectionStore(db, logger)
	app.contentStore = postgres.NewPostgresContentStore(db, logger)
	app.taxonomyStore = postgres.NewPostgresTaxonomyStore(db, logger)

	app.assetStore, err = assets.New(cfg.Assets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize asset store: %w", err)
	}

	// Background cleanup: course deletion emits an event, the handler
	// turns it into a queued task removing the course's stored assets.
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.taskRunner = task.NewTaskRunner(task.TaskRunnerConfig{
		QueueSize:   cfg.Task.QueueSize,
		WorkerCount: cfg.Task.WorkerCount,
	}, logger)
	app.taskRunner.Start()
	app.eventEmitter.RegisterHandler(
		task.NewCleanupEventHandler(app.assetStore, app.taskRunner, logger),
	)

	app.courseService, err = service.NewCourseService(
		db,
		app.collectionStore,
		app.contentStore,
		app.taxonomyStore,
		service.NewOwnerAuthorizer(),
		service.NewChildGuardValidator(app.collectionStore),
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create course service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
