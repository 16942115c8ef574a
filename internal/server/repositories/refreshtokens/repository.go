// Package refreshtokens stores the single-use refresh tokens handed out at
// login and on every rotation.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	// Issue stores t so it can be redeemed once before t.ExpiresAt.
	Issue(ctx context.Context, t *models.RefreshToken) error

	// Consume atomically removes the token and returns what it was issued
	// for. Of two concurrent calls with the same token at most one gets it;
	// the other, like any unknown token, sees common.ErrorNotFound. Expired
	// tokens are consumed too; the caller decides what expiry means.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)
}
