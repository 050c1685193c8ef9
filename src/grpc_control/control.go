package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name. Messages are
// protobuf well-known types, so no generated code is needed.
const ServiceName = "dashboard.control.v1.DashboardControl"

// -----------------------------------------------------------------------------
// Server side
// -----------------------------------------------------------------------------

type ControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ForceRefresh(context.Context, *emptypb.Empty) (*wrapperspb.Int32Value, error)
	ReloadConfig(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	UpdateTickers(context.Context, *structpb.ListValue) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

// ServiceDesc describes the control service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler: unary("GetStatus", func(srv ControlServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return srv.GetStatus(ctx, in)
			}),
		},
		{
			MethodName: "ForceRefresh",
			Handler: unary("ForceRefresh", func(srv ControlServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return srv.ForceRefresh(ctx, in)
			}),
		},
		{
			MethodName: "ReloadConfig",
			Handler: unary("ReloadConfig", func(srv ControlServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return srv.ReloadConfig(ctx, in)
			}),
		},
		{
			MethodName: "UpdateTickers",
			Handler: unary("UpdateTickers", func(srv ControlServer, ctx context.Context, in *structpb.ListValue) (proto.Message, error) {
				return srv.UpdateTickers(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dashboard/control/v1/control.proto",
}

// -----------------------------------------------------------------------------

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

// unary adapts a typed method to a grpc.MethodHandler.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}](method string, call func(ControlServer, context.Context, PReq) (proto.Message, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method

	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// -----------------------------------------------------------------------------
// Client side
// -----------------------------------------------------------------------------

type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

// -----------------------------------------------------------------------------

func (c *ControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetStatus", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (c *ControlClient) ForceRefresh(ctx context.Context, opts ...grpc.CallOption) (int, error) {
	out := new(wrapperspb.Int32Value)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ForceRefresh", &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return int(out.GetValue()), nil
}

// -----------------------------------------------------------------------------

func (c *ControlClient) ReloadConfig(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/ReloadConfig", &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

// -----------------------------------------------------------------------------

func (c *ControlClient) UpdateTickers(ctx context.Context, tickers []string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	values := make([]interface{}, len(tickers))
	for i, t := range tickers {
		values[i] = t
	}
	in, err := structpb.NewList(values)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/UpdateTickers", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
