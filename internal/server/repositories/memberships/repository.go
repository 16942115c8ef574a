// Package memberships declares the ledger contract for (room, user) pairs.
// Rows are never deleted; leaving a room only clears the active flag.
package memberships

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the pair has never existed.
	Get(ctx context.Context, roomID, userID string) (*models.Membership, error)
	// Save inserts the pair or overwrites its active flag and join time.
	Save(ctx context.Context, m *models.Membership) error
	// ListActive returns active members with usernames, earliest joiner first.
	ListActive(ctx context.Context, roomID string) ([]*models.Member, error)
	// MarkRead moves an active member's read watermark to the ledger's
	// current time and returns it. Inactive or absent pairs get
	// common.ErrorNotFound.
	MarkRead(ctx context.Context, roomID, userID string) (time.Time, error)
}
