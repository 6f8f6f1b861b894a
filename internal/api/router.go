// Package api provides the HTTP API for WorkCrew.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/workcrew/workcrew/internal/api/handler"
	"github.com/workcrew/workcrew/internal/api/middleware"
	"github.com/workcrew/workcrew/internal/auth"
	"github.com/workcrew/workcrew/internal/device"
	"github.com/workcrew/workcrew/internal/featureflags"
	"github.com/workcrew/workcrew/internal/invitation"
	"github.com/workcrew/workcrew/internal/push"
	"github.com/workcrew/workcrew/internal/task"
	"github.com/workcrew/workcrew/internal/user"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version            string
	BuildTime          string
	Logger             zerolog.Logger
	ServiceName        string
	Metrics            *middleware.Metrics
	Pool               *pgxpool.Pool
	Gateway            push.Gateway
	AuthService        *auth.Service
	UserService        *user.Service
	DeviceService      *device.Service
	TaskService        *task.Service
	InvitationService  *invitation.Service
	Dispatcher         *push.Dispatcher
	FeatureFlagService *featureflags.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "workcrew-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Pool, cfg.Gateway)
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.InvitationService)
	meHandler := handler.NewMeHandler(cfg.UserService)
	deviceHandler := handler.NewDeviceHandler(cfg.DeviceService)
	taskHandler := handler.NewTaskHandler(cfg.TaskService)
	invitationHandler := handler.NewInvitationHandler(cfg.InvitationService)
	notificationHandler := handler.NewNotificationHandler(cfg.Dispatcher)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)               // 10 req/min
	dispatchRateLimit := middleware.RateLimitByUser(middleware.DispatchRateLimit)     // 30 req/min
	standardUserRateLimit := middleware.RateLimitByUser(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit) // 10 requests per minute per IP
			r.Post("/login", authHandler.Login)
			r.Post("/signup", authHandler.Signup)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
			// logout-all requires authentication
			r.With(authMiddleware).Post("/logout-all", authHandler.LogoutAll)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Me endpoints (authenticated) - user-based rate limiting
		r.Route("/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardUserRateLimit)
			r.Get("/", meHandler.GetMe)
			r.Put("/", meHandler.UpdateMe)

			// Devices
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", deviceHandler.ListDevices)
				r.Post("/", deviceHandler.RegisterDevice)
				r.Delete("/{deviceId}", deviceHandler.UnregisterDevice)
			})
		})

		// Worker listing (site managers only)
		r.Route("/workers", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireManager)
			r.Use(standardUserRateLimit)
			r.Get("/", meHandler.ListWorkers)
		})

		// Task endpoints (authenticated)
		r.Route("/tasks", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardUserRateLimit)
			r.Get("/", taskHandler.ListTasks)
			r.With(middleware.RequireManager).Post("/", taskHandler.CreateTask)
			r.Route("/{taskId}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTask)
				r.Put("/", taskHandler.UpdateTask)
				r.Delete("/", taskHandler.DeleteTask)
				r.Post("/assign", taskHandler.AssignWorkers)
				r.Post("/complete", taskHandler.CompleteTask)
				// Reminders fan out to every assigned device
				r.With(dispatchRateLimit).Post("/remind", taskHandler.RemindTask)
			})
		})

		// Invitation endpoints (site managers only)
		r.Route("/invitations", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireManager)
			r.Use(standardUserRateLimit)
			r.Get("/", invitationHandler.ListInvitations)
			r.Post("/", invitationHandler.CreateInvitation)
			r.Post("/{invitationId}/cancel", invitationHandler.CancelInvitation)
		})

		// Notification endpoints (authenticated) - dispatch rate limiting
		r.Route("/notifications", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(dispatchRateLimit)
			r.Post("/test", notificationHandler.SendTestNotification)
		})

		// Admin endpoints (site managers only)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireManager)
			r.Use(standardUserRateLimit)

			// Feature flags management
			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
