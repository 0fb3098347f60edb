package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/xue-yuan/dionysus/internal/observability"
	apperrors "github.com/xue-yuan/dionysus/pkg/util/errorutil"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency names a Pinger for readiness output.
type Dependency struct {
	Name   string
	Pinger Pinger
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	dependencies []Dependency
	metrics      *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, metrics *observability.Metrics, deps ...Dependency) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, dependencies: deps, metrics: metrics}
}

// Heartbeat answers GET /api/heartbeat and GET /api/v1/user.
func (h *HealthHandler) Heartbeat(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	depStatus := map[string]any{}
	ready := true
	for _, dep := range h.dependencies {
		if err := dep.Pinger.Ping(ctx); err != nil {
			depStatus[dep.Name] = err.Error()
			ready = false
			continue
		}
		depStatus[dep.Name] = "ok"
	}

	if !ready {
		return apperrors.NewDomainError("DEPENDENCY_UNAVAILABLE", apperrors.CodeUndocumentedException,
			"one or more dependencies unavailable", fiber.StatusServiceUnavailable, depStatus)
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": depStatus,
	})
}

// Metrics returns the in-memory counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
