package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// TriageEngineServiceName is the fully qualified gRPC service name.
const TriageEngineServiceName = "feedlens.v1.TriageEngine"

// TriageEngineServer is the gRPC surface. Requests and responses are
// google.protobuf.Struct documents carrying the same JSON shapes as the HTTP API.
type TriageEngineServer interface {
	Query(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Groups(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Tags(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AIFilter(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(TriageEngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structMethod) grpc.MethodHandler {
	fullMethod := "/" + TriageEngineServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TriageEngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TriageEngineServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TriageEngineServiceDesc describes the service for grpc.Server registration.
var TriageEngineServiceDesc = grpc.ServiceDesc{
	ServiceName: TriageEngineServiceName,
	HandlerType: (*TriageEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Query", Handler: unaryHandler("Query", TriageEngineServer.Query)},
		{MethodName: "Groups", Handler: unaryHandler("Groups", TriageEngineServer.Groups)},
		{MethodName: "Tags", Handler: unaryHandler("Tags", TriageEngineServer.Tags)},
		{MethodName: "AIFilter", Handler: unaryHandler("AIFilter", TriageEngineServer.AIFilter)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterTriageEngineServer registers srv with s.
func RegisterTriageEngineServer(s grpc.ServiceRegistrar, srv TriageEngineServer) {
	s.RegisterService(&TriageEngineServiceDesc, srv)
}

// TriageEngineClient calls a remote TriageEngine.
type TriageEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewTriageEngineClient wraps an established connection.
func NewTriageEngineClient(cc grpc.ClientConnInterface) *TriageEngineClient {
	return &TriageEngineClient{cc: cc}
}

// Call invokes method with in and returns the response document.
func (c *TriageEngineClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+TriageEngineServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
