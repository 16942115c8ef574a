// Package client contains the client-side building blocks that talk to the
// chat server and keep local state.
//
// GRPCClient implements Client over the JSON gRPC contract in chatapi. It
// injects the access token into every call, refreshes it once when the
// server reports it expired, and maps status codes onto sentinel errors
// (ErrUnavailable, ErrUnauthorized and the common.Err* domain errors).
//
// InitDatabase opens the local SQLite file and applies the embedded goose
// migrations.
package client
