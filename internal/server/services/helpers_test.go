package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

type env struct {
	m        repomanager.RepositoryManager
	guard    *AccessGuard
	users    *UserService
	rooms    *RoomService
	messages *MessageService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, repomanager.NewInMemoryRepositoryManager())
}

func newEnvWith(t *testing.T, m repomanager.RepositoryManager) *env {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	log := logging.Nop{}
	guard := NewAccessGuard(m)
	return &env{
		m:        m,
		guard:    guard,
		users:    NewUserService(m, auth.SHA256Verifier{}, cfg, log),
		rooms:    NewRoomService(m, guard, log),
		messages: NewMessageService(m, guard, log, 0),
	}
}

func (e *env) register(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), name, "pw-"+name)
	require.NoError(t, err)
	return u
}

func (e *env) room(t *testing.T, creator *models.User, invitees ...string) *models.Room {
	t.Helper()
	r, err := e.rooms.CreateRoom(context.Background(), "room", creator.ID, invitees)
	require.NoError(t, err)
	return r
}

// envelope returns a well-formed envelope whose ciphertext starts with tag.
func envelope(tag byte) models.Envelope {
	return models.Envelope{
		Ciphertext: bytes.Repeat([]byte{tag}, models.EnvelopeMinCTSize),
		IV:         make([]byte, models.EnvelopeIVSize),
	}
}

func nopLogger() logging.Logger { return logging.Nop{} }
