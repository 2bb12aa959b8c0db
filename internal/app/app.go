package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/search-provisioner/internal/backup"
	"github.com/utafrali/search-provisioner/internal/config"
	"github.com/utafrali/search-provisioner/internal/engine"
	"github.com/utafrali/search-provisioner/internal/event"
	handler "github.com/utafrali/search-provisioner/internal/handler/http"
	"github.com/utafrali/search-provisioner/internal/lock"
	"github.com/utafrali/search-provisioner/internal/provision"
	postgresrepo "github.com/utafrali/search-provisioner/internal/repository/postgres"
	"github.com/utafrali/search-provisioner/internal/seed"
	"github.com/utafrali/search-provisioner/internal/task"
	"github.com/utafrali/search-provisioner/pkg/database"
	"github.com/utafrali/search-provisioner/pkg/health"
	pkgkafka "github.com/utafrali/search-provisioner/pkg/kafka"
	"github.com/utafrali/search-provisioner/pkg/tracing"
)

// App wires together all dependencies of the provisioner.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	engine      *engine.Client
	poller      *task.Poller
	producer    *pkgkafka.Producer
	events      *event.Producer
	provisioner *provision.Provisioner
	backups     *backup.Service

	httpServer *http.Server
	closers    []func() error
}

// New creates an application instance, initializing every dependency except
// the catalog database, which is only dialed when a seed run needs it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "search-provisioner",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tracerShutdown(ctx)
	})

	a.engine = engine.New(engine.Config{
		BaseURL:   cfg.EngineURL,
		MasterKey: cfg.EngineMasterKey,
		Timeout:   cfg.EngineTimeout,
	}, logger)

	a.poller = task.New(a.engine.TaskFetcher(), task.Config{
		Interval:          cfg.PollInterval,
		MaxWait:           cfg.PollMaxWait,
		BackoffMultiplier: 1.5,
	}, logger)

	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	a.producer = pkgkafka.NewProducer(kafkaCfg, logger)
	a.closers = append(a.closers, a.producer.Close)
	a.events = event.NewProducer(a.producer, logger)

	redisCfg := database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	redisClient, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.closers = append(a.closers, redisClient.Close)

	locks := lock.NewManager(redisClient, provision.DefaultConfig().LeaseTTL)

	a.provisioner = provision.NewProvisioner(
		a.engine,
		a.engine.TaskFetcher(),
		locks,
		a.events,
		provision.Config{
			HealthInterval: cfg.HealthInterval,
			HealthMaxWait:  cfg.HealthMaxWait,
			TaskInterval:   cfg.PollInterval,
			TaskMaxWait:    cfg.PollMaxWait,
		},
		logger,
	)

	a.backups = backup.NewService(a.engine, a.poller, a.events, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("engine", a.engine.Ping)
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	admin := handler.NewAdminHandler(a.provisioner, seedRunner{a}, a.backups, cfg.IndexUID, logger)
	router := handler.NewRouter(admin, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Provision provisions the catalog index per the default plan and the
// configured index identity.
func (a *App) Provision(ctx context.Context) (*provision.Report, error) {
	plan := provision.DefaultPlan()
	plan.IndexUID = a.cfg.IndexUID
	plan.PrimaryKey = a.cfg.PrimaryKey
	return a.provisioner.Run(ctx, plan)
}

// Seed dials the catalog database and indexes the published products. The
// pool lives only for the duration of the run.
func (a *App) Seed(ctx context.Context, indexUID string) (*seed.Report, error) {
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = a.cfg.PostgresHost
	pgCfg.Port = a.cfg.PostgresPort
	pgCfg.User = a.cfg.PostgresUser
	pgCfg.Password = a.cfg.PostgresPassword
	pgCfg.DBName = a.cfg.PostgresDB
	pgCfg.SSLMode = a.cfg.PostgresSSLMode

	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init catalog pool: %w", err)
	}
	defer pool.Close()

	seeder := seed.NewSeeder(
		postgresrepo.NewProductRepository(pool),
		a.engine,
		a.poller,
		a.events,
		seed.Config{
			BatchSize:        a.cfg.SeedBatchSize,
			BatchesPerSecond: a.cfg.SeedBatchesPerSecond,
		},
		a.logger,
	)

	return seeder.Run(ctx, indexUID)
}

// Backup triggers an engine dump and waits for it.
func (a *App) Backup(ctx context.Context) (*backup.Report, error) {
	return a.backups.CreateDump(ctx)
}

// Run starts the HTTP server, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the HTTP server and closes connections.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// Close releases connections held by the app without touching the HTTP
// server. Used by the one-shot subcommands.
func (a *App) Close() {
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.logger.Error("close error", slog.String("error", err.Error()))
		}
	}
}

// seedRunner adapts App.Seed to the admin handler's SeedRunner.
type seedRunner struct {
	app *App
}

func (s seedRunner) Run(ctx context.Context, indexUID string) (*seed.Report, error) {
	return s.app.Seed(ctx, indexUID)
}
