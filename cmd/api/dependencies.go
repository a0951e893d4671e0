package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/budget-tracker/internal/domain/auth/handler"
	"github.com/FACorreiaa/budget-tracker/internal/domain/auth/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/auth/service"
	expensehandler "github.com/FACorreiaa/budget-tracker/internal/domain/expense/handler"
	expenserepo "github.com/FACorreiaa/budget-tracker/internal/domain/expense/repository"
	expenseservice "github.com/FACorreiaa/budget-tracker/internal/domain/expense/service"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/classifier"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/extractor"
	importhandler "github.com/FACorreiaa/budget-tracker/internal/domain/import/handler"
	importrepo "github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/budget-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/session"
	"github.com/FACorreiaa/budget-tracker/internal/domain/user"
	userhandler "github.com/FACorreiaa/budget-tracker/internal/domain/user/handler"
	"github.com/FACorreiaa/budget-tracker/pkg/config"
	"github.com/FACorreiaa/budget-tracker/pkg/db"
	"github.com/FACorreiaa/budget-tracker/pkg/observability"
)

// sessionPurgeSchedule runs the refresh-token cleanup.
const sessionPurgeSchedule = "@hourly"

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	AuthRepo    repository.AuthRepository
	UserRepo    user.UserRepo
	ImportRepo  *importrepo.PostgresImportRepository
	ExpenseRepo expenserepo.ExpenseRepository

	// Services
	TokenManager   service.TokenManager
	AuthService    *service.AuthService
	UserSvc        user.UserService
	Sessions       *session.Store
	Classifier     *classifier.Chain
	Bayes          *classifier.BayesStage
	ImportMetrics  *observability.ImportMetrics
	ImportService  *importservice.ImportService
	ExpenseService *expenseservice.ExpenseService

	// Handlers
	AuthHandler    *handler.AuthHandler
	UserHandler    *userhandler.UserHandler
	ImportHandler  *importhandler.ImportHandler
	ExpenseHandler *expensehandler.ExpenseHandler

	scheduler *cron.Cron
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	if err := deps.startBackgroundJobs(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to start background jobs: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.AuthRepo = repository.NewPostgresAuthRepository(d.DB.Pool)
	d.UserRepo = user.NewPostgresUserRepo(d.DB.Pool, d.Logger)
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.ExpenseRepo = expenserepo.NewPostgresExpenseRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	jwtSecret := []byte(d.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		return errors.New("jwt secret is required")
	}

	d.TokenManager = service.NewTokenManager(jwtSecret, d.Config.Auth.AccessTokenTTL, d.Config.Auth.RefreshTokenTTL)
	d.AuthService = service.NewAuthService(d.AuthRepo, d.TokenManager, d.Logger)
	d.UserSvc = user.NewUserService(d.UserRepo, d.Logger)

	if err := d.initClassifier(); err != nil {
		return err
	}

	d.Sessions = session.NewStore(d.Config.Import.SessionTTL, d.Logger)
	d.ImportMetrics = observability.NewImportMetrics(prometheus.DefaultRegisterer)
	d.ImportService = importservice.NewImportService(importservice.Deps{
		Repo:       d.ImportRepo,
		Extractor:  extractor.New(extractor.NewPdftotext(d.Config.Import.PdftotextPath), d.Logger),
		Classifier: d.Classifier,
		Sessions:   d.Sessions,
		Learner:    d.Bayes,
		Metrics:    d.ImportMetrics,
		Logger:     d.Logger,
	})

	d.ExpenseService = expenseservice.NewExpenseService(expenseservice.Deps{
		Repo:       d.ExpenseRepo,
		Rules:      d.ImportRepo,
		Classifier: d.Classifier,
		Learner:    d.Bayes,
		Logger:     d.Logger,
	})

	d.Logger.Info("services initialized")
	return nil
}

// initClassifier builds the category chain shared by import and manual entry.
func (d *Dependencies) initClassifier() error {
	keywords, err := classifier.LoadKeywords(d.Config.Import.KeywordsPath)
	if err != nil {
		return fmt.Errorf("failed to load keywords: %w", err)
	}
	d.Bayes = classifier.NewBayesStage(d.ImportRepo)

	opts := classifier.Options{
		Rules:    d.ImportRepo,
		Bayes:    d.Bayes,
		Keywords: keywords,
		Workers:  d.Config.Import.ClassifierWorkers,
	}
	if d.Config.AI.Enabled() {
		opts.Completer = classifier.NewAnthropicCompleter(d.Config.AI.AnthropicAPIKey, d.Config.AI.Model, d.Config.AI.Timeout)
		d.Logger.Info("AI classification enabled", slog.String("model", d.Config.AI.Model))
	} else {
		d.Logger.Warn("no Anthropic API key configured, AI classification disabled")
	}
	d.Classifier = classifier.New(d.Logger, opts)
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.AuthHandler = handler.NewAuthHandler(d.AuthService)
	d.UserHandler = userhandler.NewUserHandler(d.UserSvc)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, int(d.Config.Import.MaxUploadBytes))
	d.ExpenseHandler = expensehandler.NewExpenseHandler(d.ExpenseService)

	d.Logger.Info("handlers initialized")
	return nil
}

// startBackgroundJobs starts the upload session sweeper and the expired
// refresh token purge.
func (d *Dependencies) startBackgroundJobs() error {
	if err := d.Sessions.Start(d.Config.Import.SweepSchedule); err != nil {
		return err
	}

	d.scheduler = cron.New()
	if _, err := d.scheduler.AddFunc(sessionPurgeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		d.AuthService.PurgeExpiredSessions(ctx)
	}); err != nil {
		return fmt.Errorf("invalid purge schedule: %w", err)
	}
	d.scheduler.Start()
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.scheduler != nil {
		<-d.scheduler.Stop().Done()
	}
	if d.Sessions != nil {
		d.Sessions.Stop()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
