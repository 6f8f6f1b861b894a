// Package main provides the entrypoint for the WorkCrew API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/workcrew/workcrew/internal/api"
	"github.com/workcrew/workcrew/internal/api/middleware"
	"github.com/workcrew/workcrew/internal/auth"
	"github.com/workcrew/workcrew/internal/database"
	"github.com/workcrew/workcrew/internal/device"
	"github.com/workcrew/workcrew/internal/featureflags"
	"github.com/workcrew/workcrew/internal/invitation"
	"github.com/workcrew/workcrew/internal/mail"
	"github.com/workcrew/workcrew/internal/notify"
	"github.com/workcrew/workcrew/internal/push"
	"github.com/workcrew/workcrew/internal/task"
	"github.com/workcrew/workcrew/internal/telemetry"
	"github.com/workcrew/workcrew/internal/user"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "workcrew-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting WorkCrew API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "https://api.workcrew.io"
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     jwtIssuer,
		Audience:   "workcrew-api",
	})

	// Initialize repositories
	userRepo := user.NewPostgresRepository(pool)
	refreshRepo := auth.NewPostgresRefreshTokenRepository(pool)
	deviceRepo := device.NewPostgresRepository(pool)
	taskRepo := task.NewPostgresRepository(pool)
	invitationRepo := invitation.NewPostgresRepository(pool)
	ffRepo := featureflags.NewPostgresRepository(pool)

	authService := auth.NewService(auth.ServiceConfig{
		JWTService:  jwtService,
		UserRepo:    userRepo,
		RefreshRepo: refreshRepo,
	})
	log.Info().Msg("auth service initialized")

	userService := user.NewService(userRepo)
	deviceService := device.NewService(deviceRepo)

	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: ffRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	log.Info().Msg("feature flags service initialized")

	// Push delivery: FCM behind a circuit breaker so a flapping gateway
	// does not burn a full timeout on every token in a batch.
	breakerCfg := push.DefaultBreakerConfig("fcm")
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("push breaker state changed")
	}
	gateway := push.NewBreakerGateway(push.NewFCMGateway(), breakerCfg)

	deliveryTimeout := time.Duration(ffService.PushDeliveryTimeout(ctx, 10)) * time.Second
	dispatcher := push.NewDispatcher(push.DispatcherConfig{
		Gateway:         gateway,
		Devices:         deviceService,
		Logger:          log,
		DeliveryTimeout: deliveryTimeout,
	})
	log.Info().Dur("delivery_timeout", deliveryTimeout).Msg("push dispatcher initialized")

	notifier := notify.NewNotifier(notify.NotifierConfig{
		Dispatcher: dispatcher,
		Flags:      ffService,
		Logger:     log,
	})

	taskService := task.NewService(task.ServiceConfig{
		Repo:     taskRepo,
		Users:    userRepo,
		Notifier: notifier,
		Logger:   log,
	})
	log.Info().Msg("task service initialized")

	// Invitation email delivery
	smtpConfig := mail.DefaultSMTPConfig()
	smtpConfig.Host = os.Getenv("SMTP_HOST")
	if smtpConfig.Host == "" {
		log.Warn().Msg("SMTP_HOST not set - invitation emails will fail")
	}
	if p := os.Getenv("SMTP_PORT"); p != "" {
		smtpConfig.Port = p
	}
	smtpConfig.Username = os.Getenv("SMTP_USERNAME")
	smtpConfig.Password = os.Getenv("SMTP_PASSWORD")
	smtpConfig.From = os.Getenv("SMTP_FROM")
	mailer := mail.NewSMTPSender(smtpConfig, log)

	invitationService := invitation.NewService(invitation.ServiceConfig{
		Repo:   invitationRepo,
		Users:  userRepo,
		Mailer: mailer,
		Flags:  ffService,
		Logger: log,
	})
	log.Info().Msg("invitation service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		Pool:               pool,
		Gateway:            gateway,
		AuthService:        authService,
		UserService:        userService,
		DeviceService:      deviceService,
		TaskService:        taskService,
		InvitationService:  invitationService,
		Dispatcher:         dispatcher,
		FeatureFlagService: ffService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
