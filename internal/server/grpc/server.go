// Package grpc serves the ledger tools over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/ledgerd/internal/logging"
	"github.com/dmitrijs2005/ledgerd/internal/server/tools"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address string
	tools   *tools.Registry
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, r *tools.Registry) (*GRPCServer, error) {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		tools:   r,
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv.RegisterService(serviceDesc(s.tools.Names()), s)
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

// Serve accepts connections on l until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, l net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", l.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(l); err != nil {
		return err
	}

	return nil
}
