// Package client is the Go client for the meetauth gRPC endpoint.
//
// GRPCClient dials the server, keeps the session token returned by Login and
// attaches it as "authorization: Bearer <token>" to every later call through
// a unary interceptor. gRPC status codes are mapped to the sentinel errors in
// errors.go so callers can match them with errors.Is.
package client
