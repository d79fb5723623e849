package common

const (
	// AuthorizationHeaderName is the gRPC metadata key carrying "Bearer <token>".
	AuthorizationHeaderName = "authorization"

	// BearerPrefix precedes the session token in the authorization header.
	BearerPrefix = "Bearer "

	// DefaultVisionTokens is the usage-credit balance given to new accounts.
	DefaultVisionTokens int64 = 10
)
