package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/meetauth/internal/api"
	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps domain errors onto gRPC codes. Anything unrecognised is
// logged and reported as Internal without detail.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, "user not found")
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, "email already exists")
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, common.ErrAccountDisabled):
		return status.Error(codes.PermissionDenied, "account disabled")
	case errors.Is(err, common.ErrTokenInvalid):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, common.ErrInsufficientBalance):
		return status.Error(codes.FailedPrecondition, "insufficient balance")
	}
	s.logger.Error(ctx, op+" failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing principal")
	}
	return p.UserID, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	res, err := s.svc.Flow.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}
	return &api.LoginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *api.WhoAmIRequest) (*api.WhoAmIResponse, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing principal")
	}
	u, err := s.svc.Store.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, "whoami", err)
	}
	return &api.WhoAmIResponse{User: u, IsAdmin: p.IsAdmin, ExpiresAt: p.ExpiresAt}, nil
}

func (s *GRPCServer) Spend(ctx context.Context, req *api.SpendRequest) (*api.BalanceResponse, error) {
	id, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	bal, err := s.svc.Ledger.Debit(ctx, id, req.Amount)
	if err != nil {
		return nil, s.toStatus(ctx, "spend", err)
	}
	return &api.BalanceResponse{UserID: id, Balance: bal}, nil
}

func (s *GRPCServer) GetUser(ctx context.Context, req *api.UserRequest) (*api.UserResponse, error) {
	var (
		u   *models.PublicUser
		err error
	)
	switch {
	case req.UserID != "":
		u, err = s.svc.Store.FindByID(ctx, req.UserID)
	case req.Email != "":
		u, err = s.svc.Store.FindByEmail(ctx, req.Email)
	default:
		return nil, status.Error(codes.InvalidArgument, "user_id or email is required")
	}
	if err != nil {
		return nil, s.toStatus(ctx, "get user", err)
	}
	return &api.UserResponse{User: u}, nil
}

func (s *GRPCServer) userResponse(ctx context.Context, op string, u *models.PublicUser, err error) (*api.UserResponse, error) {
	if err != nil {
		return nil, s.toStatus(ctx, op, err)
	}
	return &api.UserResponse{User: u}, nil
}

func (s *GRPCServer) SetAdmin(ctx context.Context, req *api.FlagRequest) (*api.UserResponse, error) {
	if req.Value {
		u, err := s.svc.Roles.PromoteToAdmin(ctx, req.UserID)
		return s.userResponse(ctx, "promote", u, err)
	}
	u, err := s.svc.Roles.DemoteFromAdmin(ctx, req.UserID)
	return s.userResponse(ctx, "demote", u, err)
}

func (s *GRPCServer) SetBanned(ctx context.Context, req *api.FlagRequest) (*api.UserResponse, error) {
	u, err := s.svc.Roles.SetBanned(ctx, req.UserID, req.Value)
	return s.userResponse(ctx, "set banned", u, err)
}

func (s *GRPCServer) SetActive(ctx context.Context, req *api.FlagRequest) (*api.UserResponse, error) {
	u, err := s.svc.Roles.SetActive(ctx, req.UserID, req.Value)
	return s.userResponse(ctx, "set active", u, err)
}

func (s *GRPCServer) Credit(ctx context.Context, req *api.AmountRequest) (*api.BalanceResponse, error) {
	bal, err := s.svc.Ledger.Credit(ctx, req.UserID, req.Amount)
	if err != nil {
		return nil, s.toStatus(ctx, "credit", err)
	}
	return &api.BalanceResponse{UserID: req.UserID, Balance: bal}, nil
}

func (s *GRPCServer) SetBalance(ctx context.Context, req *api.AmountRequest) (*api.UserResponse, error) {
	u, err := s.svc.Ledger.SetBalance(ctx, req.UserID, req.Amount)
	return s.userResponse(ctx, "set balance", u, err)
}
