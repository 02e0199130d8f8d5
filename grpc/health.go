package grpc

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service names reported by the health server. The empty name is the
// overall status.
const (
	ServiceReminder = "reminder"
	ServiceThreads  = "threads"
)

// HealthServer exposes the state of the periodic jobs over the standard
// gRPC health protocol.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	lis    net.Listener
}

// NewHealthServer registers the health service with every job marked as
// serving.
func NewHealthServer() *HealthServer {
	h := &HealthServer{
		srv:    grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.srv, h.health)
	for _, svc := range []string{"", ServiceReminder, ServiceThreads} {
		h.health.SetServingStatus(svc, healthpb.HealthCheckResponse_SERVING)
	}
	return h
}

// Start listens on addr and serves in the background.
func (h *HealthServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	h.lis = lis
	go func() {
		if err := h.srv.Serve(lis); err != nil {
			log.Printf("gRPC health server stopped: %v", err)
		}
	}()
	log.Printf("gRPC health server listening on %s", lis.Addr())
	return nil
}

// Addr is the bound address, nil before Start.
func (h *HealthServer) Addr() net.Addr {
	if h.lis == nil {
		return nil
	}
	return h.lis.Addr()
}

// Report records the outcome of a job run. A failed run marks the service
// as not serving until the next successful run.
func (h *HealthServer) Report(service string, err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(service, status)
}

// Stop drains connections and marks everything as not serving.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.srv.GracefulStop()
}

// Check queries a health server, the way a probe or an operator would.
func Check(ctx context.Context, addr, service string, timeout time.Duration) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
