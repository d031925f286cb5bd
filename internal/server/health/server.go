// Package health runs a gRPC server exposing the standard
// grpc.health.v1.Health service, so orchestrators can probe the plain TCP
// pledge server.
package health

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/pledgeboard/internal/logging"
)

// ServiceName is the name probes use for the pledge protocol service.
const ServiceName = "pledgeboard.PledgeService"

type Server struct {
	address string
	logger  logging.Logger
	health  *health.Server
	ready   chan net.Addr
}

func NewServer(address string, l logging.Logger) *Server {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		address: address,
		logger:  l.With("module", "health_server"),
		health:  h,
		ready:   make(chan net.Addr, 1),
	}
}

// SetServing flips both the overall and the pledge service status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Ready yields the bound address once the listener is up.
func (s *Server) Ready() <-chan net.Addr { return s.ready }

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping health server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting health server", "address", listen.Addr().String())
	s.ready <- listen.Addr()

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
