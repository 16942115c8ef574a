// Package messages declares the ledger contract for stored envelopes.
package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	// Create stores msg with the Seq and CreatedAt already reserved for it.
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)
	// GetByID returns common.ErrorNotFound for an unknown message.
	GetByID(ctx context.Context, id string) (*models.Message, error)
	// List returns a page of the room's history in ascending seq order.
	List(ctx context.Context, roomID string, limit, offset int) ([]*models.Message, error)
	// Latest returns common.ErrorNotFound for a room with no messages.
	Latest(ctx context.Context, roomID string) (*models.Message, error)
	// CountUnread counts messages not sent by userID created after since.
	// A nil since counts all of them.
	CountUnread(ctx context.Context, roomID, userID string, since *time.Time) (int, error)
	// UpdateEnvelope replaces the body of a message sent by senderID and marks
	// it edited. Other senders get common.ErrorNotFound.
	UpdateEnvelope(ctx context.Context, id, senderID string, env models.Envelope, editedAt time.Time) error
}
