package poolpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// PoolServiceClient calls PoolService with typed messages.
type PoolServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPoolServiceClient(cc grpc.ClientConnInterface) *PoolServiceClient {
	return &PoolServiceClient{cc: cc}
}

func (c *PoolServiceClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	req, err := Encode(in)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, resp, opts...); err != nil {
		return err
	}
	return Decode(resp, out)
}

func (c *PoolServiceClient) Upload(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*UploadResponse, error) {
	out := new(UploadResponse)
	return out, c.invoke(ctx, MethodUpload, in, out, opts...)
}

func (c *PoolServiceClient) Renew(ctx context.Context, in *RenewRequest, opts ...grpc.CallOption) (*RenewResponse, error) {
	out := new(RenewResponse)
	return out, c.invoke(ctx, MethodRenew, in, out, opts...)
}

func (c *PoolServiceClient) Assign(ctx context.Context, in *AssignRequest, opts ...grpc.CallOption) (*AssignResponse, error) {
	out := new(AssignResponse)
	return out, c.invoke(ctx, MethodAssign, in, out, opts...)
}

func (c *PoolServiceClient) Delete(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodDelete, in, new(Empty), opts...)
}

func (c *PoolServiceClient) Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	out := new(AccountResponse)
	return out, c.invoke(ctx, MethodUpdate, in, out, opts...)
}

func (c *PoolServiceClient) Clear(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodClear, in, new(Empty), opts...)
}

func (c *PoolServiceClient) List(ctx context.Context, opts ...grpc.CallOption) (*ListResponse, error) {
	out := new(ListResponse)
	return out, c.invoke(ctx, MethodList, &Empty{}, out, opts...)
}

func (c *PoolServiceClient) Ping(ctx context.Context, opts ...grpc.CallOption) (*PingResponse, error) {
	out := new(PingResponse)
	return out, c.invoke(ctx, MethodPing, &Empty{}, out, opts...)
}
