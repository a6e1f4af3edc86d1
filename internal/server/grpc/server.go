// Package grpc exposes the pool over gRPC. Consumer calls (Renew, Assign,
// Ping) are open; administrative calls need an operator access token.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/warrantypool/internal/logging"
	"github.com/dmitrijs2005/warrantypool/internal/poolpb"
	"github.com/dmitrijs2005/warrantypool/internal/server/models"
	"github.com/dmitrijs2005/warrantypool/internal/server/services"
	"google.golang.org/grpc"
)

type PoolService interface {
	Renew(ctx context.Context, warrantyKey string) (*services.RenewResult, error)
	Assign(ctx context.Context, consumerName, expireDate string) (*services.AssignResult, error)
}

type AccountService interface {
	Upload(ctx context.Context, req services.UploadRequest) (*services.UploadResult, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error)
	Clear(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Account, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type GRPCServer struct {
	address   string
	pool      PoolService
	accounts  AccountService
	store     Pinger
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, pool PoolService, accounts AccountService, store Pinger, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		pool:      pool,
		accounts:  accounts,
		store:     store,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	poolpb.RegisterPoolServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
