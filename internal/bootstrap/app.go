package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"sst-backend/document/render"
	"sst-backend/document/stamp"
	"sst-backend/internal/documents"
	"sst-backend/internal/mailer"
	"sst-backend/internal/notifications"
	"sst-backend/internal/queue"
	"sst-backend/internal/requests"
	"sst-backend/internal/services/health"
	"sst-backend/internal/shared/config"
	"sst-backend/internal/shared/server"
	"sst-backend/internal/shared/server/middleware"
	"sst-backend/internal/shared/storage/db"
	"sst-backend/internal/shared/storage/object"
	localstore "sst-backend/internal/shared/storage/object/local"
	s3store "sst-backend/internal/shared/storage/object/s3"
	"sst-backend/internal/shared/telemetry"
	"sst-backend/internal/uploads"
	"sst-backend/internal/users"
)

// renderRule allows short bursts of rendering per caller.
var renderRule = middleware.RateLimitRule{Rate: 0.5, Burst: 5}

// App holds shared dependencies and the HTTP router.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *sql.DB
	Store      object.ObjectStore
	Dispatcher notifications.Dispatcher

	UsersService         *users.Service
	NotificationsService *notifications.Service
	RequestsService      *requests.Service
	DocumentsService     *documents.Service
	Deliverer            *notifications.Deliverer
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.ApproverRole) == "" {
		cfg.ApproverRole = "admin"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg, db.DefaultServerOptions())
	if err != nil {
		return nil, err
	}
	// Local databases are migrated on start; deployed ones go through cmd/migrate.
	if sqlDB != nil && isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			closeDB(sqlDB)
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	catalog, err := render.LoadCatalog(cfg.DocumentCatalogPath)
	if err != nil {
		closeDB(sqlDB)
		return nil, fmt.Errorf("load document catalog: %w", err)
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	app.UsersService = users.NewService(buildUsersRepo(sqlDB))
	app.Deliverer, err = buildDeliverer(cfg, app.UsersService)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}
	app.Dispatcher, err = buildDispatcher(ctx, cfg, app.Deliverer)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	var (
		notificationRepo notifications.Repo
		requestRepo      requests.Repo
		documentRepo     documents.DocumentsRepo
	)
	if sqlDB != nil {
		notificationRepo = &notifications.PGRepo{DB: sqlDB}
		requestRepo = &requests.PGRepo{DB: sqlDB}
		documentRepo = &documents.PGRepo{DB: sqlDB}
	} else {
		notificationRepo = notifications.NewMemoryRepo()
		requestRepo = requests.NewMemoryRepo()
		documentRepo = documents.NewMemoryRepo()
	}

	app.NotificationsService = notifications.NewService(notificationRepo, app.Dispatcher)
	intake := uploads.NewIntake(store, cfg.MaxUploadBytes)
	stamper := stamp.New(stamp.Options{Location: cfg.Location()})
	app.RequestsService = requests.NewService(requestRepo, intake, stamper, app.NotificationsService, cfg.ApproverRole)
	app.DocumentsService = documents.NewService(store, documentRepo, catalog, cfg.ApproverRole)

	limiter := middleware.NewRateLimiter(nil)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:              cfg,
		Health:              health.NewService(sqlDB),
		DocumentHandler:     documents.NewHandler(app.DocumentsService, middleware.RateLimit("documents.render", renderRule, limiter)),
		RequestHandler:      requests.NewHandler(app.RequestsService),
		NotificationHandler: notifications.NewHandler(app.NotificationsService),
		UserHandler:         users.NewHandler(app.UsersService, cfg.ApproverRole),
	})

	return app, nil
}

// Close drains pending emails until ctx is done, then releases the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain email dispatcher: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Worker holds what cmd/worker needs to deliver queued emails.
type Worker struct {
	Deliverer *notifications.Deliverer
	DB        *sql.DB
}

// BuildWorker prepares the email deliverer without HTTP wiring.
func BuildWorker(cfg config.Config) (*Worker, error) {
	sqlDB, err := buildDB(context.Background(), cfg, db.DefaultWorkerOptions())
	if err != nil {
		return nil, err
	}
	deliverer, err := buildDeliverer(cfg, users.NewService(buildUsersRepo(sqlDB)))
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}
	return &Worker{Deliverer: deliverer, DB: sqlDB}, nil
}

// Close releases the database.
func (w *Worker) Close() error {
	if w.DB == nil {
		return nil
	}
	return w.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config, defaults db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_url_empty", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(defaults))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_connect_failed", map[string]any{"fallback": "memory", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Config{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildUsersRepo(sqlDB *sql.DB) users.Repo {
	if sqlDB != nil {
		return &users.PGRepo{DB: sqlDB}
	}
	return users.NewMemoryRepo()
}

func buildDeliverer(cfg config.Config, directory notifications.Directory) (*notifications.Deliverer, error) {
	sender, err := mailer.New(cfg.Mail)
	if err != nil {
		return nil, err
	}
	return &notifications.Deliverer{Directory: directory, Sender: sender, BaseURL: cfg.AppBaseURL}, nil
}

// buildDispatcher runs email delivery in process, or publishes jobs for
// cmd/worker when an SQS queue is configured.
func buildDispatcher(ctx context.Context, cfg config.Config, deliverer *notifications.Deliverer) (notifications.Dispatcher, error) {
	queueURL := strings.TrimSpace(cfg.Notify.SQSQueueURL)
	if queueURL == "" {
		return notifications.NewPool(deliverer.Sender.Name(), cfg.Notify.Workers, cfg.Notify.QueueSize, cfg.Mail.Timeout, deliverer.Deliver), nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, queueURL)
	if err != nil {
		return nil, err
	}
	return notifications.NewPool("sqs", cfg.Notify.Workers, cfg.Notify.QueueSize, cfg.Mail.Timeout, notifications.Publish(client)), nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
