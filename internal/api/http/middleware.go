package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/observability"
	"github.com/spec-kit/attendance-service/internal/ratelimit"
	apperrors "github.com/spec-kit/attendance-service/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	// The logger wraps the error middleware so it records the status the
	// client actually received, not the pre-rewrite one.
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

// RateLimit gates a route group on the given endpoint class. The identifier
// is the authenticated caller when present, the client IP otherwise.
// Exhaustion surfaces as 429 with a retry_after hint; limiter backend
// failures fail open, since abuse mitigation never outranks availability.
func RateLimit(limiter ratelimit.Limiter, class ratelimit.Class, dispatcher events.Dispatcher, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.IP()
		if principal, ok := auth.PrincipalFromContext(c); ok {
			identifier = principal.UserID
		}

		result, err := limiter.Check(c.UserContext(), identifier, class)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err), zap.String("class", string(class)))
			return c.Next()
		}
		if !result.Allowed {
			retryAfter := result.RetryAfterSeconds()
			if dispatcher != nil {
				_ = dispatcher.Publish(c.UserContext(), events.Event{
					ID:        uuid.NewString(),
					Type:      events.EventRateLimitExceeded,
					Timestamp: time.Now().UTC(),
					Payload: events.RateLimitExceededPayload{
						Identifier:    identifier,
						EndpointClass: string(class),
						RetryAfterSec: retryAfter,
					},
				})
			}
			return apperrors.NewTooManyRequests(retryAfter)
		}
		return c.Next()
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				}
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}
