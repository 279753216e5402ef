package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	httptransport "github.com/civicdesk/issue-reporter/internal/api/http"
	"github.com/civicdesk/issue-reporter/internal/api/http/handlers"
	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/config"
	"github.com/civicdesk/issue-reporter/internal/events"
	"github.com/civicdesk/issue-reporter/internal/notify"
	"github.com/civicdesk/issue-reporter/internal/observability"
	"github.com/civicdesk/issue-reporter/internal/persistence"
	"github.com/civicdesk/issue-reporter/internal/repository"
	"github.com/civicdesk/issue-reporter/internal/service"
	"github.com/civicdesk/issue-reporter/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo  repository.UserRepository
		staffRepo repository.StaffRepository
		adminRepo repository.AdminRepository
	)
	if pg.Enabled() {
		userRepo = repository.NewUserRepository(pg.Pool)
		staffRepo = repository.NewStaffRepository(pg.Pool)
		adminRepo = repository.NewAdminRepository(pg.Pool)
	} else {
		store := repository.NewMemoryStore()
		userRepo, staffRepo, adminRepo = store.Users(), store.Staff(), store.Admins()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var forwarder *events.NATSForwarder
	if cfg.Events.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.Events.NATSURL, cfg.App.Name)
		if err != nil {
			logger.Warn("nats unavailable; events stay in process", zap.Error(err))
		} else {
			defer drainNATS(nc, logger)
			forwarder = events.NewNATSForwarder(nc, cfg.Events.SubjectPrefix, logger)
		}
	}
	worker.StartEventWorkers(dispatcher, service.NewAuditService(dispatcher, logger), forwarder)

	tokens := auth.NewTokenService(cfg.Auth)
	cookies := auth.NewCookieJar(cfg.Auth, cfg.App)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:       userRepo,
		StaffRepo:      staffRepo,
		AdminRepo:      adminRepo,
		RevocationRepo: repository.NewRevocationRepository(redis.Client),
		Tokens:         tokens,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	otpService := service.NewOTPService(cfg.OTP, service.OTPDependencies{
		OTPRepo:    repository.NewOTPRepository(redis.Client),
		UserRepo:   userRepo,
		StaffRepo:  staffRepo,
		AdminRepo:  adminRepo,
		Delivery:   notify.NewRouterFromConfig(cfg.Mail, cfg.SMS, logger),
		Sessions:   authService,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	if _, err := authService.EnsureBootstrapAdmin(ctx, cfg.Bootstrap); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	probes := map[string]handlers.Pinger{"redis": redis}
	if pg.Enabled() {
		probes["postgres"] = pg
	}

	app := httptransport.NewApp(cfg.App, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Production:     cfg.App.IsProduction(),
	}, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes),
		Users:           handlers.NewUsersHandler(authService, cookies),
		Staff:           handlers.NewStaffHandler(authService, cookies),
		Admin:           handlers.NewAdminHandler(authService, cookies),
		OTP:             handlers.NewOTPHandler(otpService, cookies),
		Session:         handlers.NewSessionHandler(authService, cookies),
		AuthMiddleware:  auth.NewAuthMiddleware(tokens, cookies, userRepo, staffRepo, adminRepo, logger),
		Metrics:         metrics,
		OTPRateLimitMin: cfg.OTP.RateLimitPerMinute,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func drainNATS(nc *nats.Conn, logger *zap.Logger) {
	if err := nc.Drain(); err != nil {
		logger.Warn("nats drain", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
