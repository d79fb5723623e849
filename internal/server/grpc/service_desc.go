package grpc

import (
	"context"

	"github.com/dmitrijs2005/meetauth/internal/api"
	"google.golang.org/grpc"
)

// AuthServiceServer is the end-user surface.
type AuthServiceServer interface {
	Login(context.Context, *api.LoginRequest) (*api.LoginResponse, error)
	WhoAmI(context.Context, *api.WhoAmIRequest) (*api.WhoAmIResponse, error)
	Spend(context.Context, *api.SpendRequest) (*api.BalanceResponse, error)
}

// AdminServiceServer is the operator surface.
type AdminServiceServer interface {
	GetUser(context.Context, *api.UserRequest) (*api.UserResponse, error)
	SetAdmin(context.Context, *api.FlagRequest) (*api.UserResponse, error)
	SetBanned(context.Context, *api.FlagRequest) (*api.UserResponse, error)
	SetActive(context.Context, *api.FlagRequest) (*api.UserResponse, error)
	Credit(context.Context, *api.AmountRequest) (*api.BalanceResponse, error)
	SetBalance(context.Context, *api.AmountRequest) (*api.UserResponse, error)
}

// unary adapts a typed method to grpc.MethodDesc, running the server's
// interceptor chain the same way generated code does.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: api.AuthService,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.AuthService, "Login", AuthServiceServer.Login),
		unary(api.AuthService, "WhoAmI", AuthServiceServer.WhoAmI),
		unary(api.AuthService, "Spend", AuthServiceServer.Spend),
	},
	Metadata: "meetauth/auth",
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: api.AdminService,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.AdminService, "GetUser", AdminServiceServer.GetUser),
		unary(api.AdminService, "SetAdmin", AdminServiceServer.SetAdmin),
		unary(api.AdminService, "SetBanned", AdminServiceServer.SetBanned),
		unary(api.AdminService, "SetActive", AdminServiceServer.SetActive),
		unary(api.AdminService, "Credit", AdminServiceServer.Credit),
		unary(api.AdminService, "SetBalance", AdminServiceServer.SetBalance),
	},
	Metadata: "meetauth/admin",
}
