package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/attendance-service/internal/api/http"
	"github.com/spec-kit/attendance-service/internal/api/http/handlers"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/config"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/observability"
	"github.com/spec-kit/attendance-service/internal/persistence"
	"github.com/spec-kit/attendance-service/internal/ratelimit"
	"github.com/spec-kit/attendance-service/internal/repository"
	"github.com/spec-kit/attendance-service/internal/service"
	"github.com/spec-kit/attendance-service/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisStore := persistence.NewRedis(cfg.Redis, logger)
	defer redisStore.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	refreshRepo := repository.NewRefreshCredentialRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	locationRepo := repository.NewLocationRepository(pool)

	accessKeys, err := auth.NewKeyset(cfg.Auth.AccessKeys, cfg.Auth.AccessActiveKID)
	if err != nil {
		logger.Fatal("invalid access keyset", zap.Error(err))
	}
	refreshKeys, err := auth.NewKeyset(cfg.Auth.RefreshKeys, cfg.Auth.RefreshActiveKID)
	if err != nil {
		logger.Fatal("invalid refresh keyset", zap.Error(err))
	}
	tokens := auth.NewTokenManager(accessKeys, refreshKeys, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL())
	hasher := auth.NewBcryptPinHasher(cfg.Auth.BcryptCost)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	// Shared counters when Redis is reachable; otherwise per-process
	// windows plus a sweeping worker.
	memoryLimiter := ratelimit.NewMemoryLimiter()
	var limiter ratelimit.Limiter = memoryLimiter
	if redisStore.Available(ctx) {
		limiter = ratelimit.NewRedisLimiter(redisStore.Client)
		memoryLimiter = nil
	}

	permissionService := service.NewPermissionService(userRepo, dispatcher, logger)
	sessionService := service.NewSessionService(service.SessionDependencies{
		UserRepo:    userRepo,
		RefreshRepo: refreshRepo,
		Tokens:      tokens,
		Hasher:      hasher,
		Permissions: permissionService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	attendanceService := service.NewAttendanceService(attendanceRepo, locationRepo, service.NoopEvidenceChecker{}, dispatcher, logger)

	auditService := service.NewAuditService(dispatcher, logger, cfg.Audit)
	auditService.RegisterHandlers()

	authMiddleware := auth.NewMiddleware(sessionService.TokenManager(), permissionService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisStore),
		Auth:           handlers.NewAuthHandler(sessionService, limiter),
		Attendance:     handlers.NewAttendanceHandler(attendanceService),
		AuthMiddleware: authMiddleware,
		Limiter:        limiter,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	cleanup := worker.NewCleanupWorker(refreshRepo, memoryLimiter, cfg.RateLimit.SweepInterval(), logger)
	go cleanup.Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
