package client

import (
	"context"

	"github.com/dmitrijs2005/meetauth/internal/api"
)

// Client is the end-user surface of the meetauth endpoint.
type Client interface {
	Close() error
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Logout()
	LoggedIn() bool
	WhoAmI(ctx context.Context) (*api.WhoAmIResponse, error)
	Spend(ctx context.Context, amount int64) (int64, error)
	Ping(ctx context.Context) error
}

var _ Client = (*GRPCClient)(nil)
