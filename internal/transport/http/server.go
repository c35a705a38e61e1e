package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sociable/internal/config"
	"sociable/internal/database"
	v1 "sociable/internal/handler/v1"
	v2 "sociable/internal/handler/v2"
	"sociable/internal/httputil"
	"sociable/internal/logger"
	"sociable/internal/mail"
	"sociable/internal/queue"
	"sociable/internal/redis"
	"sociable/internal/repository"
	"sociable/internal/service"
	authmw "sociable/internal/transport/http/middleware"
	"sociable/internal/worker"
)

// Run wires the whole application together and serves until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(os.Getenv("DEBUG") == "true")
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := redisClient.Ping(pingCtx); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	relationshipRepo := repository.NewRelationshipRepository(db)
	resetRepo := repository.NewResetCodeRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)

	// Streams
	publisher := queue.NewPublisher(redisClient.Client, log)
	consumer := queue.NewConsumer(redisClient.Client, log)

	// Services
	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg)
	} else {
		mailer = mail.NewLogSender(log)
	}

	authService := service.NewAuthService(
		refreshRepo,
		userRepo,
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenMaxAge)*time.Second,
		time.Duration(cfg.RefreshTokenMaxAge)*time.Second,
		log,
	)
	userService := service.NewUserService(userRepo, profileRepo, resetRepo, authService, db, publisher, mailer, log)
	profileService := service.NewProfileService(userRepo, profileRepo, relationshipRepo, db, log)
	relationshipService := service.NewRelationshipService(userRepo, profileRepo, relationshipRepo, db, log)

	// Workers answering cross-service relationship queries
	queryHandler := worker.NewHandler(userRepo, relationshipRepo, publisher, log)
	manager := worker.NewManager(consumer, queryHandler, log, worker.ManagerConfig{
		WorkerCount: cfg.WorkerCount,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	router := NewRouter(RouterConfig{
		UserV1:         v1.NewUserHandler(userService, authService),
		UserV2:         v2.NewUserHandler(userService),
		ProfileV1:      v1.NewProfileHandler(profileService),
		ProfileV2:      v2.NewProfileHandler(profileService),
		PrivacyV1:      v1.NewPrivacyHandler(profileService),
		PrivacyV2:      v2.NewPrivacyHandler(profileService),
		Relationships:  v1.NewRelationshipHandler(relationshipService),
		Auth:           authmw.NewAuth(authService),
		Errors:         httputil.NewDomainErrorWriter(log),
		VersionHeader:  cfg.APIVersionHeader,
		DefaultVersion: cfg.APIDefaultVersion,
	})

	server := &stdhttp.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
