package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/example/orderdesk/pkg/refresh"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// StatsSource reports the refresh tasks whose health is published.
type StatsSource interface {
	Stats() []refresh.Stats
}

// HealthServer publishes one gRPC health service per refresh task plus the
// overall service "", which is SERVING only while every task is healthy.
type HealthServer struct {
	health    *health.Server
	source    StatsSource
	threshold int
	logger    *zap.Logger

	mu  sync.Mutex
	srv *grpc.Server
}

func NewHealthServer(source StatsSource, unhealthyAfter int, logger *zap.Logger) *HealthServer {
	return &HealthServer{
		health:    health.NewServer(),
		source:    source,
		threshold: unhealthyAfter,
		logger:    logger.Named("health"),
	}
}

// Update copies the current refresh statistics into the health service.
func (h *HealthServer) Update() {
	overall := healthpb.HealthCheckResponse_SERVING

	for _, st := range h.source.Stats() {
		status := healthpb.HealthCheckResponse_SERVING
		if !st.Healthy(h.threshold) {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
		h.health.SetServingStatus(st.Name, status)
	}

	h.health.SetServingStatus("", overall)
}

// Run updates the health status every interval until ctx ends.
func (h *HealthServer) Run(ctx context.Context, interval time.Duration) {
	h.Update()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Update()
		}
	}
}

func (h *HealthServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}

func (h *HealthServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return h.Serve(lis)
}

func (h *HealthServer) Serve(lis net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h.health)
	reflection.Register(srv)

	h.mu.Lock()
	h.srv = srv
	h.mu.Unlock()

	h.logger.Info("Health service started", zap.String("address", lis.Addr().String()))
	return srv.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains the server.
func (h *HealthServer) Stop() {
	h.health.Shutdown()

	h.mu.Lock()
	srv := h.srv
	h.mu.Unlock()

	if srv != nil {
		srv.GracefulStop()
	}
}
