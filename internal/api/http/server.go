package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/issue-reporter/internal/config"
)

// NewApp builds the fiber application with global middlewares and routes attached.
func NewApp(app config.AppConfig, mw MiddlewareConfig, routes RouteConfig) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:      app.Name,
		ErrorHandler: ErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	RegisterMiddlewares(server, mw)
	RegisterRoutes(server, routes)
	return server
}
