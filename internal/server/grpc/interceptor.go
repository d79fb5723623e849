package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/meetauth/internal/api"
	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalKey ctxKey = "principal"

// Authorizer turns a bearer token into a principal, re-checking the account.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*auth.Principal, error)
}

// publicMethods need no session.
var publicMethods = map[string]bool{
	api.LoginMethod: true,
}

const healthPrefix = "/grpc.health.v1.Health/"

func isPublic(method string) bool {
	return publicMethods[method] || strings.HasPrefix(method, healthPrefix)
}

// PrincipalFromContext returns the principal attached by the auth interceptors.
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	return p, ok && p != nil
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}
	v := values[0]
	if len(v) < len(common.BearerPrefix) || !strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(common.BearerPrefix):])
}

// authenticate attaches the principal for method to ctx, or returns a
// status error.
func (s *GRPCServer) authenticate(ctx context.Context, method string) (context.Context, error) {
	if isPublic(method) {
		return ctx, nil
	}

	token := bearerToken(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	p, err := s.authz.Authorize(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrTokenInvalid) {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		s.logger.Error(ctx, "authorization failed", "method", method, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	if strings.HasPrefix(method, api.AdminMethodPrefix) && !p.IsAdmin {
		s.logger.Warn(ctx, "non-admin called admin method", "method", method, "user_id", p.UserID)
		return nil, status.Error(codes.PermissionDenied, "admin role required")
	}

	return context.WithValue(ctx, principalKey, p), nil
}

func (s *GRPCServer) authUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := s.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

// principalStream overrides the stream context with the authenticated one.
type principalStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (p *principalStream) Context() context.Context { return p.ctx }

func (s *GRPCServer) authStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authenticate(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &principalStream{ServerStream: ss, ctx: ctx})
}
