package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	deps        map[string]Pinger
	now         func() time.Time
}

// NewHealthHandler returns a new handler instance. deps are keyed by the name reported in
// the readiness body.
func NewHealthHandler(serviceName, version string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, deps: deps, now: time.Now}
}

// Live handles GET /api/health.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   h.serviceName + " is running",
		"version":   h.version,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /api/health/ready, pinging every dependency concurrently.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.deps))
	errs := make([]error, len(h.deps))
	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}

	var g errgroup.Group
	for i, name := range names {
		dep := h.deps[name]
		g.Go(func() error {
			errs[i] = dep.Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for i, name := range names {
		if errs[i] != nil {
			results[name] = errs[i].Error()
			ready = false
			continue
		}
		results[name] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"success":      true,
			"message":      "ready",
			"dependencies": results,
			"timestamp":    h.now().UTC().Format(time.RFC3339),
		})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"success": false,
		"code":    "DEPENDENCY_UNAVAILABLE",
		"message": "one or more dependencies unavailable",
		"details": results,
	})
}
