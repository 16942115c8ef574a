package refreshtokens

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

const (
	issueQuery = `
		INSERT INTO refresh_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	consumeQuery = `
		DELETE FROM refresh_tokens
		WHERE token = $1
		RETURNING user_id, expires_at
	`
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Issue(ctx context.Context, t *models.RefreshToken) error {
	if _, err := r.db.ExecContext(ctx, issueQuery, t.Token, t.UserID, t.ExpiresAt); err != nil {
		return fmt.Errorf("issue refresh token: %w", err)
	}
	return nil
}

// Consume relies on DELETE ... RETURNING: the row lock makes a second
// concurrent delete of the same token match nothing.
func (r *PostgresRepository) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	t := &models.RefreshToken{Token: token}
	if err := r.db.QueryRowContext(ctx, consumeQuery, token).Scan(&t.UserID, &t.ExpiresAt); err != nil {
		return nil, dbx.LookupError(err)
	}
	return t, nil
}
