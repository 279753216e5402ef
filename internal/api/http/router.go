package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicdesk/issue-reporter/internal/api/http/handlers"
	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/domain"
	"github.com/civicdesk/issue-reporter/internal/observability"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Users           *handlers.UsersHandler
	Staff           *handlers.StaffHandler
	Admin           *handlers.AdminHandler
	OTP             *handlers.OTPHandler
	Session         *handlers.SessionHandler
	AuthMiddleware  *auth.AuthMiddleware
	Metrics         *observability.Metrics
	OTPRateLimitMin int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Get("/health", cfg.Health.Live)
	api.Get("/health/ready", cfg.Health.Ready)

	authenticated := cfg.AuthMiddleware.Handle

	users := api.Group("/users")
	users.Post("/signup", cfg.Users.Signup)
	users.Post("/login", cfg.Users.Login)

	staff := api.Group("/staff")
	staff.Post("/register", cfg.Staff.Register)
	staff.Post("/login", cfg.Staff.Login)
	staff.Get("/profile", authenticated, auth.Require(auth.StaffOnly), cfg.Staff.Profile)
	staff.Get("/", authenticated, auth.Require(auth.AdminOrStaff), cfg.Staff.List)

	admin := api.Group("/admin")
	admin.Post("/login", cfg.Admin.Login)
	admin.Get("/profile", authenticated, auth.Require(auth.AdminOnly), cfg.Admin.Profile)
	admin.Patch("/staff/:id/approve", authenticated,
		auth.Require(auth.RequirePermission(domain.PermManageStaff)), cfg.Admin.ApproveStaff)
	admin.Post("/admins", authenticated,
		auth.Require(auth.RequirePermission(domain.PermManageAdmins)), cfg.Admin.CreateAdmin)

	limited := otpRateLimiter(cfg.OTPRateLimitMin)
	otp := api.Group("/otp")
	otp.Post("/request", limited, cfg.OTP.Request)
	otp.Post("/resend", limited, cfg.OTP.Resend)
	otp.Post("/verify", cfg.OTP.Verify)
	otp.Post("/login/:role", cfg.OTP.Login)
	otp.Post("/signup/user", cfg.OTP.SignupUser)

	session := api.Group("/auth")
	session.Post("/refresh", cfg.Session.Refresh)
	session.Post("/logout", cfg.Session.Logout)
	session.Get("/me", authenticated, cfg.Session.Me)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("Route not found: " + c.Method() + " " + c.Path())
	})
}
