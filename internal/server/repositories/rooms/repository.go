// Package rooms declares the ledger contract for room records and their
// per-room message sequence.
package rooms

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, room *models.Room) (*models.Room, error)
	// GetByID returns common.ErrorNotFound for an unknown room.
	GetByID(ctx context.Context, id string) (*models.Room, error)
	// ListForUser returns rooms where userID is an active member, most recently
	// active first.
	ListForUser(ctx context.Context, userID string) ([]*models.Room, error)
	// NextSequence reserves the next position in the room's message order and
	// returns it with a timestamp that never goes backwards within the room.
	// It must run inside a transaction to serialise appenders per room.
	NextSequence(ctx context.Context, roomID string) (int64, time.Time, error)
}
