package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/api"
	"github.com/dmitrijs2005/meetauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	health      healthpb.HealthClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if t := s.token(); t != "" && method != api.LoginMethod {
		ctx = withAccessToken(ctx, t)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewMeetauthClient dials endpointURL. Extra options are appended to the
// defaults, which use plaintext transport.
func NewMeetauthClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	all := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, all...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.health = healthpb.NewHealthClient(conn)
	return nil
}

func (s *GRPCClient) invoke(ctx context.Context, method string, req, resp any) error {
	if err := s.conn.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(api.CodecName)); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Login verifies the credentials and keeps the returned session token.
func (s *GRPCClient) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	var resp api.LoginResponse
	if err := s.invoke(ctx, api.LoginMethod, &api.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.accessToken = resp.Token
	s.expiresAt = resp.ExpiresAt
	s.mu.Unlock()

	return &resp, nil
}

// Logout forgets the session token. Tokens are stateless, so nothing is sent
// to the server.
func (s *GRPCClient) Logout() {
	s.mu.Lock()
	s.accessToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

// LoggedIn reports whether a token is held and has not reached its expiry.
func (s *GRPCClient) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != "" && time.Now().Before(s.expiresAt)
}

func (s *GRPCClient) requireToken() error {
	if s.token() == "" {
		return ErrNotLoggedIn
	}
	return nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*api.WhoAmIResponse, error) {
	if err := s.requireToken(); err != nil {
		return nil, err
	}
	var resp api.WhoAmIResponse
	if err := s.invoke(ctx, api.WhoAmIMethod, &api.WhoAmIRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Spend debits the caller's own vision tokens and returns the new balance.
func (s *GRPCClient) Spend(ctx context.Context, amount int64) (int64, error) {
	if err := s.requireToken(); err != nil {
		return 0, err
	}
	var resp api.BalanceResponse
	if err := s.invoke(ctx, api.SpendMethod, &api.SpendRequest{Amount: amount}, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (s *GRPCClient) GetUser(ctx context.Context, ref api.UserRequest) (*api.UserResponse, error) {
	var resp api.UserResponse
	if err := s.invoke(ctx, api.GetUserMethod, &ref, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) setFlag(ctx context.Context, method, userID string, value bool) (*api.UserResponse, error) {
	var resp api.UserResponse
	if err := s.invoke(ctx, method, &api.FlagRequest{UserID: userID, Value: value}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) SetAdmin(ctx context.Context, userID string, admin bool) (*api.UserResponse, error) {
	return s.setFlag(ctx, api.SetAdminMethod, userID, admin)
}

func (s *GRPCClient) SetBanned(ctx context.Context, userID string, banned bool) (*api.UserResponse, error) {
	return s.setFlag(ctx, api.SetBannedMethod, userID, banned)
}

func (s *GRPCClient) SetActive(ctx context.Context, userID string, active bool) (*api.UserResponse, error) {
	return s.setFlag(ctx, api.SetActiveMethod, userID, active)
}

func (s *GRPCClient) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	var resp api.BalanceResponse
	if err := s.invoke(ctx, api.CreditMethod, &api.AmountRequest{UserID: userID, Amount: amount}, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (s *GRPCClient) SetBalance(ctx context.Context, userID string, value int64) (*api.UserResponse, error) {
	var resp api.UserResponse
	if err := s.invoke(ctx, api.SetBalanceMethod, &api.AmountRequest{UserID: userID, Amount: value}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping asks the standard health service whether the server is serving.
func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.FailedPrecondition:
		return ErrInsufficientBalance
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
