// Package repomanager hands services one ledger handle: repository
// constructors bound to either the pool or a transaction, plus migrations.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/memberships"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/rooms"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// Conn is the non-transactional handle to pass to the accessors.
	Conn() dbx.DBTX
	// WithTx runs fn atomically; repositories built from tx see its writes.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
	Users(db dbx.DBTX) users.Repository
	Rooms(db dbx.DBTX) rooms.Repository
	Memberships(db dbx.DBTX) memberships.Repository
	Messages(db dbx.DBTX) messages.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Close() error
}
