package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/guardline/workforce-service/internal/api/http"
	"github.com/guardline/workforce-service/internal/api/http/handlers"
	"github.com/guardline/workforce-service/internal/auth"
	"github.com/guardline/workforce-service/internal/config"
	"github.com/guardline/workforce-service/internal/gateway"
	"github.com/guardline/workforce-service/internal/notify"
	"github.com/guardline/workforce-service/internal/observability"
	"github.com/guardline/workforce-service/internal/persistence"
	"github.com/guardline/workforce-service/internal/repository"
	"github.com/guardline/workforce-service/internal/service"
	"github.com/guardline/workforce-service/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workforce API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	publisher := notify.NewRedisPublisher(redis, cfg.Notify, logger)
	fanout := notify.NewFanout(notify.FanoutDependencies{
		Notifier:    publisher,
		Broadcaster: publisher,
		Logger:      logger,
		Metrics:     metrics,
	})

	authzService := service.NewAuthorizationService(service.AuthorizationDependencies{
		UserRepo: userRepo,
		Logger:   logger,
	})
	auditService := service.NewAuditService(service.AuditDependencies{
		AuditRepo: auditRepo,
		Logger:    logger,
		Metrics:   metrics,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo: userRepo,
		Authz:    authzService,
		Audit:    auditService,
		Fanout:   fanout,
		Logger:   logger,
	})
	reassignmentService := service.NewReassignmentService(service.ReassignmentDependencies{
		UserRepo: userRepo,
		Authz:    authzService,
		Audit:    auditService,
		Fanout:   fanout,
		Logger:   logger,
		Metrics:  metrics,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, userService)

	hub := gateway.NewHub(logger, metrics)
	presenceWorker, err := worker.StartPresenceWorker(ctx, redis, cfg.Notify, hub, logger, metrics)
	if err != nil {
		logger.Fatal("failed to start presence worker", zap.Error(err))
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(userService),
		Supervisors:    handlers.NewSupervisorsHandler(reassignmentService),
		Audit:          handlers.NewAuditHandler(auditService),
		Gateway:        handlers.NewGatewayHandler(hub),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	presenceWorker.Stop()
	hub.Close()
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
