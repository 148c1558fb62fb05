package bridge

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Smart123s/FastLogin/internal/api"
)

// LoginBridgeServer is served to host integrations over gRPC. Messages are plain structs so
// proxies in any language can call it without generated stubs.
type LoginBridgeServer interface {
	Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: api.BridgeService,
	HandlerType: (*LoginBridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Login",
			Handler:    loginHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fastlogin/v1/bridge.proto",
}

func RegisterLoginBridgeServer(s grpc.ServiceRegistrar, srv LoginBridgeServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func loginHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LoginBridgeServer).Login(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: api.BridgeLogin,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LoginBridgeServer).Login(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the bridge from Go host integrations.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Login(ctx context.Context, req *Request, opts ...grpc.CallOption) (*Result, error) {
	in, err := req.toStruct()
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, api.BridgeLogin, in, out, opts...); err != nil {
		return nil, err
	}
	return resultFromStruct(out), nil
}
