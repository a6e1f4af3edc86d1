package poolpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "warrantypool.v1.PoolService"

const (
	MethodUpload = "/" + ServiceName + "/Upload"
	MethodRenew  = "/" + ServiceName + "/Renew"
	MethodAssign = "/" + ServiceName + "/Assign"
	MethodDelete = "/" + ServiceName + "/Delete"
	MethodUpdate = "/" + ServiceName + "/Update"
	MethodClear  = "/" + ServiceName + "/Clear"
	MethodList   = "/" + ServiceName + "/List"
	MethodPing   = "/" + ServiceName + "/Ping"
)

var adminMethods = map[string]bool{
	MethodUpload: true,
	MethodDelete: true,
	MethodUpdate: true,
	MethodClear:  true,
	MethodList:   true,
}

// IsAdminMethod reports whether fullMethod requires an operator token.
func IsAdminMethod(fullMethod string) bool {
	return adminMethods[fullMethod]
}

// PoolServiceServer is the server API for PoolService.
type PoolServiceServer interface {
	Upload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Renew(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Assign(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Clear(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv PoolServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PoolServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(PoolServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// PoolServiceDesc describes PoolService for grpc.Server.RegisterService.
var PoolServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PoolServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Upload", PoolServiceServer.Upload),
		unary("Renew", PoolServiceServer.Renew),
		unary("Assign", PoolServiceServer.Assign),
		unary("Delete", PoolServiceServer.Delete),
		unary("Update", PoolServiceServer.Update),
		unary("Clear", PoolServiceServer.Clear),
		unary("List", PoolServiceServer.List),
		unary("Ping", PoolServiceServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "warrantypool/v1/pool.proto",
}

func RegisterPoolServiceServer(s grpc.ServiceRegistrar, srv PoolServiceServer) {
	s.RegisterService(&PoolServiceDesc, srv)
}
