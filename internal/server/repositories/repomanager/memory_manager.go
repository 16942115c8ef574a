package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/memberships"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/rooms"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves every accessor from one memory.Store and
// ignores the DBTX argument.
type InMemoryRepositoryManager struct {
	store *memory.Store
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{store: memory.NewStore()}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Conn() dbx.DBTX { return nil }

func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return m.store.WithTx(ctx, func(ctx context.Context) error {
		return fn(ctx, nil)
	})
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.store.Users() }

func (m *InMemoryRepositoryManager) Rooms(dbx.DBTX) rooms.Repository { return m.store.Rooms() }

func (m *InMemoryRepositoryManager) Memberships(dbx.DBTX) memberships.Repository {
	return m.store.Memberships()
}

func (m *InMemoryRepositoryManager) Messages(dbx.DBTX) messages.Repository {
	return m.store.Messages()
}

func (m *InMemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.store.RefreshTokens()
}

func (m *InMemoryRepositoryManager) Close() error { return nil }
