package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
)

// AccessGuard decides room membership. Every room and message operation
// goes through RequireActiveMember before it touches the ledger.
type AccessGuard struct {
	repomanager repomanager.RepositoryManager
}

func NewAccessGuard(m repomanager.RepositoryManager) *AccessGuard {
	return &AccessGuard{repomanager: m}
}

// IsActiveMember reports whether userID currently holds an active membership
// in roomID. Unknown rooms and users are simply not members.
func (g *AccessGuard) IsActiveMember(ctx context.Context, roomID, userID string) (bool, error) {
	m, err := g.repomanager.Memberships(g.repomanager.Conn()).Get(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, common.Upstream(err)
	}
	return m.IsActive, nil
}

// RequireActiveMember returns common.ErrForbidden unless userID is an active
// member. A missing room looks exactly like a room the caller is not in.
func (g *AccessGuard) RequireActiveMember(ctx context.Context, roomID, userID string) error {
	ok, err := g.IsActiveMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrForbidden
	}
	return nil
}
