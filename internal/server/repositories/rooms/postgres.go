package rooms

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, room *models.Room) (*models.Room, error) {
	query := `
		INSERT INTO rooms (name, creator_id, is_encrypted)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, room.Name, room.CreatorID, room.IsEncrypted).
		Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return room, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	query := `
		SELECT id, name, creator_id, is_encrypted, created_at
		FROM rooms
		WHERE id = $1
	`
	room := &models.Room{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&room.ID, &room.Name, &room.CreatorID, &room.IsEncrypted, &room.CreatedAt)
	if err != nil {
		return nil, dbx.LookupError(err)
	}
	return room, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]*models.Room, error) {
	query := `
		SELECT r.id, r.name, r.creator_id, r.is_encrypted, r.created_at
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = $1 AND m.is_active
		ORDER BY GREATEST(r.last_message_at, r.created_at) DESC, r.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Room
	for rows.Next() {
		room := &models.Room{}
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatorID, &room.IsEncrypted, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// NextSequence takes the room row lock for the rest of the transaction, so
// concurrent appends to one room queue up while other rooms proceed.
func (r *PostgresRepository) NextSequence(ctx context.Context, roomID string) (int64, time.Time, error) {
	query := `
		UPDATE rooms
		SET last_seq = last_seq + 1,
		    last_message_at = GREATEST(clock_timestamp(), last_message_at)
		WHERE id = $1
		RETURNING last_seq, last_message_at
	`
	var (
		seq int64
		at  time.Time
	)
	if err := r.db.QueryRowContext(ctx, query, roomID).Scan(&seq, &at); err != nil {
		return 0, time.Time{}, dbx.LookupError(err)
	}
	return seq, at, nil
}
