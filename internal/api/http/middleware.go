package http

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/civicdesk/issue-reporter/internal/observability"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

// MiddlewareConfig carries what the global middlewares need.
type MiddlewareConfig struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Timeout        time.Duration
	AllowedOrigins []string
	Production     bool
}

// RegisterMiddlewares attaches global middlewares. The request logger sits outside the
// error middleware so it sees the status the envelope was written with.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(requestid.New(requestid.Config{ContextKey: observability.RequestIDLocal}))
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics, cfg.Production))
	if len(cfg.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
			AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
			AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
			AllowCredentials: true,
		}))
	}
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
}

// otpRateLimiter throttles code issuance per client IP. Zero disables it.
func otpRateLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "otp:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewTooManyRequests("Too many OTP requests; try again later")
		},
	})
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, production bool) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		var stack string
		defer func() {
			if r := recover(); r != nil {
				stack = string(debug.Stack())
				logger.Error("panic recovered", zap.Any("panic", r), zap.String("stack", stack))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(routeLabel(c), c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
					if stack == "" && domainErr.Err != nil {
						stack = domainErr.Err.Error()
					}
				} else {
					stack = ""
				}
				if production {
					stack = ""
				}
				_ = writeError(c, domainErr, stack)
				err = nil
			}
		}()
		return c.Next()
	}
}

// ErrorHandler renders errors that escape the middleware chain.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, apperrors.ToDomainError(err), "")
}

func writeError(c *fiber.Ctx, domainErr *apperrors.DomainError, stack string) error {
	response := fiber.Map{
		"success": false,
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		response["details"] = domainErr.Details
	}
	if stack != "" {
		response["stack"] = stack
	}
	return c.Status(domainErr.HTTPStatus).JSON(response)
}

func routeLabel(c *fiber.Ctx) string {
	if route := c.Route().Path; route != "" {
		return route
	}
	return "unmatched"
}
