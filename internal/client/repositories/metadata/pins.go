package metadata

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrSaltChanged means the server returned a salt that differs from the one
// pinned for this username. Deriving a key from it would silently lock the
// user out of their history, so login stops.
var ErrSaltChanged = errors.New("server salt differs from the pinned salt")

func SaltKey(username string) string {
	return "salt:" + username
}

// PinSalt records salt on first use and verifies it on every later call.
func PinSalt(ctx context.Context, repo Repository, username string, salt []byte) error {
	pinned, err := repo.Get(ctx, SaltKey(username))
	if err != nil {
		return err
	}
	if pinned == nil {
		if err := repo.Set(ctx, SaltKey(username), salt); err != nil {
			return fmt.Errorf("pin salt: %w", err)
		}
		return nil
	}
	if len(pinned) != len(salt) || subtle.ConstantTimeCompare(pinned, salt) != 1 {
		return ErrSaltChanged
	}
	return nil
}

// UnpinSalt forgets the pinned salt, e.g. after the user confirms an account
// reset on the server.
func UnpinSalt(ctx context.Context, repo Repository, username string) error {
	return repo.Delete(ctx, SaltKey(username))
}
