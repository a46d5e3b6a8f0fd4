package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "candlestream.control.v1.ClientControl"

// ClientControlServer is the control surface of the subscriber daemon. Every
// request and response is a google.protobuf.Struct.
type ClientControlServer interface {
	ListSubscriptions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReplaceSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSeries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPreference(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPreferences(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ClientControlServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// -----------------------------------------------------------------------------

func unaryHandler(method string, call unaryCall) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ClientControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ClientControlServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// -----------------------------------------------------------------------------

// ClientControl_ServiceDesc describes the service for grpc.Server.RegisterService.
var ClientControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClientControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSubscriptions", Handler: unaryHandler("ListSubscriptions", ClientControlServer.ListSubscriptions)},
		{MethodName: "AddSubscription", Handler: unaryHandler("AddSubscription", ClientControlServer.AddSubscription)},
		{MethodName: "RemoveSubscription", Handler: unaryHandler("RemoveSubscription", ClientControlServer.RemoveSubscription)},
		{MethodName: "ReplaceSubscription", Handler: unaryHandler("ReplaceSubscription", ClientControlServer.ReplaceSubscription)},
		{MethodName: "GetSeries", Handler: unaryHandler("GetSeries", ClientControlServer.GetSeries)},
		{MethodName: "GetStatus", Handler: unaryHandler("GetStatus", ClientControlServer.GetStatus)},
		{MethodName: "SetPreference", Handler: unaryHandler("SetPreference", ClientControlServer.SetPreference)},
		{MethodName: "GetPreferences", Handler: unaryHandler("GetPreferences", ClientControlServer.GetPreferences)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "candlestream/control/v1/control.proto",
}

func RegisterClientControlServer(s grpc.ServiceRegistrar, srv ClientControlServer) {
	s.RegisterService(&ClientControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// ClientControlClient calls a remote ClientControl service.
type ClientControlClient struct {
	cc grpc.ClientConnInterface
}

func NewClientControlClient(cc grpc.ClientConnInterface) *ClientControlClient {
	return &ClientControlClient{cc: cc}
}

// Call invokes method with req. A nil req sends an empty Struct.
func (c *ClientControlClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
