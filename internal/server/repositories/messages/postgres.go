package messages

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

const selectMessages = `
	SELECT m.id, m.room_id, m.sender_id, u.username, m.seq, m.ciphertext, m.iv,
	       m.message_type, m.is_edited, m.edited_at, m.reply_to_id, ru.username, m.created_at
	FROM messages m
	JOIN users u ON u.id = m.sender_id
	LEFT JOIN messages rm ON rm.id = m.reply_to_id
	LEFT JOIN users ru ON ru.id = rm.sender_id
`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (room_id, sender_id, seq, ciphertext, iv, message_type, reply_to_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		msg.RoomID, msg.SenderID, msg.Seq, msg.Envelope.Ciphertext, msg.Envelope.IV,
		msg.Kind, msg.ReplyToID, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msg, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, selectMessages+` WHERE m.id = $1`, id)
	msg, err := scanMessage(row)
	if err != nil {
		return nil, dbx.LookupError(err)
	}
	return msg, nil
}

func (r *PostgresRepository) List(ctx context.Context, roomID string, limit, offset int) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		selectMessages+` WHERE m.room_id = $1 ORDER BY m.seq LIMIT $2 OFFSET $3`,
		roomID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Latest(ctx context.Context, roomID string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, selectMessages+` WHERE m.room_id = $1 ORDER BY m.seq DESC LIMIT 1`, roomID)
	msg, err := scanMessage(row)
	if err != nil {
		return nil, dbx.LookupError(err)
	}
	return msg, nil
}

func (r *PostgresRepository) CountUnread(ctx context.Context, roomID, userID string, since *time.Time) (int, error) {
	query := `
		SELECT count(*)
		FROM messages
		WHERE room_id = $1 AND sender_id <> $2
		  AND ($3::timestamptz IS NULL OR created_at > $3)
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, roomID, userID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) UpdateEnvelope(ctx context.Context, id, senderID string, env models.Envelope, editedAt time.Time) error {
	query := `
		UPDATE messages
		SET ciphertext = $3, iv = $4, is_edited = TRUE, edited_at = $5
		WHERE id = $1 AND sender_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, senderID, env.Ciphertext, env.IV, editedAt)
	if err != nil {
		return dbx.LookupError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*models.Message, error) {
	var (
		msg         models.Message
		editedAt    sql.NullTime
		replyTo     sql.NullString
		replySender sql.NullString
	)
	err := s.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.SenderName, &msg.Seq,
		&msg.Envelope.Ciphertext, &msg.Envelope.IV, &msg.Kind, &msg.IsEdited,
		&editedAt, &replyTo, &replySender, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	if editedAt.Valid {
		msg.EditedAt = &editedAt.Time
	}
	if replyTo.Valid {
		msg.ReplyToID = &replyTo.String
	}
	if replySender.Valid {
		msg.ReplyToSender = &replySender.String
	}
	return &msg, nil
}
