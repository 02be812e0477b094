package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/fixtures"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/session"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	var (
		ticketRepo repository.TicketRepository
		userRepo   repository.UserRepository
	)
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		ticketRepo = repository.NewTicketRepository(pg.DB)
		userRepo = repository.NewUserRepository(pg.DB)
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
		userRepo = repository.NewMemoryUserRepository()
		if err := loadDemoData(ctx, userRepo, ticketRepo, hasher, logger); err != nil {
			logger.Fatal("failed to load demo data", zap.Error(err))
		}
	}

	var sessions session.Store
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		sessions = session.NewRedisStore(redis.Client)
	default:
		logger.Warn("using in-memory session store")
		sessions = session.NewMemoryStore()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(logger, cfg.Notification)
	notifier := worker.StartNotificationWorker(ctx, dispatcher, notifications, logger, 0)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Policy:     domain.PolicyFor(cfg.Tickets.StrictTransitions),
		IDPrefix:   cfg.Tickets.IDPrefix,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:       userRepo,
		Sessions:       sessions,
		Tokens:         auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		Hasher:         hasher,
		AllowRoleLogin: cfg.Auth.AllowRoleLogin,
		Logger:         logger,
	})

	app := httptransport.NewServer(httptransport.ServerDependencies{
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Logger:      logger,
		Metrics:     metrics,
		Middleware: httptransport.MiddlewareConfig{
			Timeout:     cfg.App.RequestTimeout(),
			CORSOrigins: cfg.App.CORSAllowOrigins,
		},
		TicketService: ticketService,
		AuthService:   authService,
		Postgres:      pg,
		Sessions:      sessions,
		LoginLimiter:  httptransport.NewLoginLimiter(cfg.RateLimit.LoginPerSecond, cfg.RateLimit.LoginBurst),
	})

	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.App.Addr()),
			zap.Bool("role_login", cfg.Auth.AllowRoleLogin),
			zap.Bool("strict_transitions", cfg.Tickets.StrictTransitions))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := notifier.Stop(shutdownCtx); err != nil {
		logger.Warn("notification worker shutdown", zap.Error(err))
	}
}

func loadDemoData(ctx context.Context, users repository.UserRepository, tickets repository.TicketRepository, hasher *auth.PasswordHasher, logger *zap.Logger) error {
	fixture, err := fixtures.Default()
	if err != nil {
		return err
	}
	loader := &fixtures.Loader{Users: users, Tickets: tickets, Hasher: hasher, Logger: logger}
	_, err = loader.Apply(ctx, fixture)
	return err
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
