package memberships

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Get(ctx context.Context, roomID, userID string) (*models.Membership, error) {
	query := `
		SELECT room_id, user_id, joined_at, is_active, last_read_at
		FROM room_members
		WHERE room_id = $1 AND user_id = $2
	`
	m := &models.Membership{}
	var lastRead sql.NullTime
	err := r.db.QueryRowContext(ctx, query, roomID, userID).
		Scan(&m.RoomID, &m.UserID, &m.JoinedAt, &m.IsActive, &lastRead)
	if err != nil {
		return nil, dbx.LookupError(err)
	}
	if lastRead.Valid {
		m.LastReadAt = &lastRead.Time
	}
	return m, nil
}

func (r *PostgresRepository) Save(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO room_members (room_id, user_id, joined_at, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET is_active = EXCLUDED.is_active, joined_at = EXCLUDED.joined_at
	`
	if _, err := r.db.ExecContext(ctx, query, m.RoomID, m.UserID, m.JoinedAt, m.IsActive); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, roomID string) ([]*models.Member, error) {
	query := `
		SELECT u.id, u.username, m.joined_at
		FROM room_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1 AND m.is_active
		ORDER BY m.joined_at, u.username
	`
	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Member
	for rows.Next() {
		mem := &models.Member{}
		if err := rows.Scan(&mem.UserID, &mem.UserName, &mem.JoinedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, mem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, roomID, userID string) (time.Time, error) {
	query := `
		UPDATE room_members
		SET last_read_at = clock_timestamp()
		WHERE room_id = $1 AND user_id = $2 AND is_active
		RETURNING last_read_at
	`
	var at time.Time
	if err := r.db.QueryRowContext(ctx, query, roomID, userID).Scan(&at); err != nil {
		return time.Time{}, dbx.LookupError(err)
	}
	return at, nil
}
