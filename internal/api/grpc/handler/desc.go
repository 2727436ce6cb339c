package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the auth service.
const ServiceName = "sessionguard.v1.Auth"

// Full method names.
const (
	MethodRegister           = "/" + ServiceName + "/Register"
	MethodLogin              = "/" + ServiceName + "/Login"
	MethodRefresh            = "/" + ServiceName + "/Refresh"
	MethodLogout             = "/" + ServiceName + "/Logout"
	MethodVerifyEmail        = "/" + ServiceName + "/VerifyEmail"
	MethodResendVerification = "/" + ServiceName + "/ResendVerification"
	MethodForgotPassword     = "/" + ServiceName + "/ForgotPassword"
	MethodResetPassword      = "/" + ServiceName + "/ResetPassword"
	MethodMe                 = "/" + ServiceName + "/Me"
)

// AuthServer is the server API of the auth service. Requests and responses
// are google.protobuf.Struct documents.
type AuthServer interface {
	Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	VerifyEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ResendVerification(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ForgotPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Me(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv AuthServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AuthServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(AuthServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// AuthServiceDesc describes the auth service for grpc.Server.RegisterService.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("Register", AuthServer.Register),
		methodDesc("Login", AuthServer.Login),
		methodDesc("Refresh", AuthServer.Refresh),
		methodDesc("Logout", AuthServer.Logout),
		methodDesc("VerifyEmail", AuthServer.VerifyEmail),
		methodDesc("ResendVerification", AuthServer.ResendVerification),
		methodDesc("ForgotPassword", AuthServer.ForgotPassword),
		methodDesc("ResetPassword", AuthServer.ResetPassword),
		methodDesc("Me", AuthServer.Me),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sessionguard/v1/auth",
}

// RegisterAuthServer registers srv on s.
func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

// AuthClient calls the auth service.
type AuthClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthClient(cc grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{cc: cc}
}

// Call invokes a method by full name.
func (c *AuthClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
