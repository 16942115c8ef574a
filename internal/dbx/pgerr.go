package dbx

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories act on.
const (
	CodeUniqueViolation   = "23505"
	CodeInvalidTextFormat = "22P02"
)

// HasCode reports whether err carries the given Postgres SQLSTATE.
func HasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// LookupError classifies the failure of a lookup by id. A missing row and an
// id Postgres cannot parse as a UUID both mean the row does not exist, so
// callers see common.ErrorNotFound for either. Anything else is a db error.
func LookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) || HasCode(err, CodeInvalidTextFormat) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}
