package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name health checks report for.
const ServiceName = "chef.v1.ChefService"

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

// HealthHandler drives the standard gRPC health service from dependency
// checks. Both the overall status and ServiceName follow the checks.
type HealthHandler struct {
	server   *health.Server
	checks   map[string]Checker
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHealthHandler(server *health.Server, checks map[string]Checker, interval time.Duration, logger *zap.Logger) *HealthHandler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HealthHandler{
		server:   server,
		checks:   checks,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Run checks immediately and then every interval until ctx is done, when the
// service is marked NOT_SERVING.
func (h *HealthHandler) Run(ctx context.Context) {
	h.CheckOnce(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.set(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		case <-ticker.C:
			h.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs every check and updates the serving status.
func (h *HealthHandler) CheckOnce(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			h.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.set(status)
	return status
}

func (h *HealthHandler) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
