package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/meetauth/internal/api"
	"github.com/dmitrijs2005/meetauth/internal/logging"
	"github.com/dmitrijs2005/meetauth/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address string
	svc     *services.Set
	authz   Authorizer
	logger  logging.Logger
	health  *health.Server
}

var (
	_ AuthServiceServer  = (*GRPCServer)(nil)
	_ AdminServiceServer = (*GRPCServer)(nil)
)

func NewGRPCServer(a string, l logging.Logger, svc *services.Set) (*GRPCServer, error) {
	return &GRPCServer{
		address: a,
		svc:     svc,
		authz:   svc.Flow,
		logger:  l.With("module", "grpc_server"),
		health:  health.NewServer(),
	}, nil
}

// newServer builds the gRPC server with interceptors and all services
// registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.authUnaryInterceptor),
		grpc.ChainStreamInterceptor(s.authStreamInterceptor),
	)

	srv.RegisterService(&authServiceDesc, s)
	srv.RegisterService(&adminServiceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(api.AuthService, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(api.AdminService, healthpb.HealthCheckResponse_SERVING)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
