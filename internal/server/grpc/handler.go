package grpc

import (
	"context"

	"github.com/dmitrijs2005/warrantypool/internal/poolpb"
	"github.com/dmitrijs2005/warrantypool/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func decode(in *structpb.Struct, v any) error {
	if err := poolpb.Decode(in, v); err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := poolpb.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) Upload(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req poolpb.UploadRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.accounts.Upload(ctx, services.UploadRequest{
		Username:     req.Username,
		Secret:       req.Secret,
		SessionToken: req.SessionToken,
		RegisterDate: req.RegisterDate,
		ExpireDate:   req.ExpireDate,
	})
	if err != nil {
		return nil, s.toStatus(ctx, "upload", err)
	}

	s.logger.Info(ctx, "Account uploaded", "operator", operatorFrom(ctx), "account_id", res.AccountID)
	return encode(&poolpb.UploadResponse{AccountID: res.AccountID, WarrantyKey: res.WarrantyKey})
}

func (s *GRPCServer) Renew(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req poolpb.RenewRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.pool.Renew(ctx, req.WarrantyKey)
	if err != nil {
		return nil, s.toStatus(ctx, "renew", err)
	}

	return encode(&poolpb.RenewResponse{
		Status:  string(res.Status),
		Account: poolpb.NewAccount(res.Account, true),
	})
}

func (s *GRPCServer) Assign(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req poolpb.AssignRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.pool.Assign(ctx, req.ConsumerName, req.ExpireDate)
	if err != nil {
		return nil, s.toStatus(ctx, "assign", err)
	}

	return encode(&poolpb.AssignResponse{
		Status:  string(res.Status),
		Account: poolpb.NewAccount(res.Account, true),
	})
}

func (s *GRPCServer) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req poolpb.AccountRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	if err := s.accounts.Delete(ctx, req.AccountID); err != nil {
		return nil, s.toStatus(ctx, "delete", err)
	}

	s.logger.Info(ctx, "Account deleted", "operator", operatorFrom(ctx), "account_id", req.AccountID)
	return encode(&poolpb.Empty{})
}

func (s *GRPCServer) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req poolpb.UpdateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	a, err := s.accounts.Update(ctx, req.AccountID, req.Patch())
	if err != nil {
		return nil, s.toStatus(ctx, "update", err)
	}

	return encode(&poolpb.AccountResponse{Account: poolpb.NewAccount(a, false)})
}

func (s *GRPCServer) Clear(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req poolpb.AccountRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	if err := s.accounts.Clear(ctx, req.AccountID); err != nil {
		return nil, s.toStatus(ctx, "clear", err)
	}

	s.logger.Info(ctx, "Account cleared", "operator", operatorFrom(ctx), "account_id", req.AccountID)
	return encode(&poolpb.Empty{})
}

func (s *GRPCServer) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.accounts.List(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, "list", err)
	}

	resp := &poolpb.ListResponse{Accounts: make([]*poolpb.Account, 0, len(list))}
	for _, a := range list {
		resp.Accounts = append(resp.Accounts, poolpb.NewAccount(a, false))
	}
	return encode(resp)
}

func (s *GRPCServer) Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn(ctx, "store ping failed", "error", err)
			return nil, status.Error(codes.Unavailable, "store unavailable")
		}
	}
	return encode(&poolpb.PingResponse{Status: "OK"})
}
