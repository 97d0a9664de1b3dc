package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/inventory-ledger/internal/platform/logger"
)

// ServiceName is the name reported alongside the overall ("") status.
const ServiceName = "inventory.ItemStore"

type Pinger interface {
	Ping(ctx context.Context) error
}

// GRPCHealth publishes the standard gRPC health service, SERVING while the
// database answers pings.
type GRPCHealth struct {
	server   *health.Server
	db       Pinger
	interval time.Duration
	log      *logger.Logger
}

func NewGRPCHealth(db Pinger, interval time.Duration, log *logger.Logger) *GRPCHealth {
	if log == nil {
		log = logger.Nop()
	}
	return &GRPCHealth{
		server:   health.NewServer(),
		db:       db,
		interval: interval,
		log:      log.With("component", "grpc_health"),
	}
}

func (g *GRPCHealth) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, g.server)
}

// Check pings the database once and publishes the result.
func (g *GRPCHealth) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := g.db.Ping(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		g.log.Warn("database ping failed", "error", err)
	}
	g.server.SetServingStatus("", status)
	g.server.SetServingStatus(ServiceName, status)
	return status
}

// Run re-checks every interval until ctx is done, then marks everything
// NOT_SERVING.
func (g *GRPCHealth) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			g.server.Shutdown()
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, g.interval)
			g.Check(checkCtx)
			cancel()
		}
	}
}
