// Package grpcserver exposes the standard gRPC health protocol for the booking
// service. Serving status follows the same dependency checks as /readyz.
package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/vetbook/libs/grpcx"
	"github.com/md-rashed-zaman/vetbook/libs/runtime"
)

const ServiceName = "vetbook.booking.v1.BookingService"

type Server struct {
	srv      *grpc.Server
	health   *health.Server
	checks   []runtime.ReadyCheck
	interval time.Duration
	logger   *slog.Logger
}

func New(logger *slog.Logger, interval time.Duration, checks ...runtime.ReadyCheck) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s := &Server{
		srv:      grpcx.NewServer(logger),
		health:   health.NewServer(),
		checks:   checks,
		interval: interval,
		logger:   logger,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	return s
}

// Refresh runs every check once and publishes the resulting status.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for _, c := range s.checks {
		if c.Check == nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Check(checkCtx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", "check", c.Name, "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Start listens on addr and serves until ctx is done. It returns the bound
// address, which differs from addr when the port is 0.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.Refresh(ctx)

	go func() {
		s.logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := s.srv.Serve(lis); err != nil {
			s.logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.srv.GracefulStop()
				s.logger.Info("grpc server stopped")
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()

	return lis.Addr(), nil
}
