// Package metadata is the client's local key/value store. Its main tenant is
// the salt pin: the first salt the server hands out for a username is kept
// under "salt:<username>" and every later login must match it.
package metadata

import (
	"context"
)

// Repository is a byte-valued key/value store. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
