package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/api/http/handlers"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Attendance     *handlers.AttendanceHandler
	AuthMiddleware *auth.Middleware
	Limiter        ratelimit.Limiter
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login",
		RateLimit(cfg.Limiter, ratelimit.ClassLogin, cfg.Dispatcher, cfg.Logger),
		cfg.Auth.Login)
	authGroup.Post("/refresh",
		RateLimit(cfg.Limiter, ratelimit.ClassDefault, cfg.Dispatcher, cfg.Logger),
		cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)

	attendance := app.Group("/attendance",
		cfg.AuthMiddleware.Handle,
		RateLimit(cfg.Limiter, ratelimit.ClassDefault, cfg.Dispatcher, cfg.Logger))
	attendance.Get("/status",
		cfg.AuthMiddleware.RequirePermission("attendance", "read"),
		cfg.Attendance.Status)
	attendance.Post("/check-in",
		cfg.AuthMiddleware.RequirePermission("attendance", "write"),
		cfg.Attendance.CheckIn)
	attendance.Post("/check-out",
		cfg.AuthMiddleware.RequirePermission("attendance", "write"),
		cfg.Attendance.CheckOut)
}
