package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// MessageService appends and reads a room's envelopes. It never sees
// plaintext and never holds a key.
type MessageService struct {
	repomanager repomanager.RepositoryManager
	guard       *AccessGuard
	logger      logging.Logger
	maxPageSize int
	now         func() time.Time
}

// NewMessageService caps history pages at maxPageSize; a non-positive value
// means MaxPageSize.
func NewMessageService(m repomanager.RepositoryManager, guard *AccessGuard, logger logging.Logger, maxPageSize int) *MessageService {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	return &MessageService{
		repomanager: m,
		guard:       guard,
		logger:      logger.With("module", "message_service"),
		maxPageSize: maxPageSize,
		now:         time.Now,
	}
}

func validKind(kind string) bool {
	return kind == common.DefaultMessageKind || kind == common.FileMessageKind
}

// Append checks membership, then reply integrity, then stores the envelope
// at the room's next sequence position.
func (s *MessageService) Append(ctx context.Context, roomID, senderID string, env models.Envelope, kind string, replyTo *string) (*models.Message, error) {
	if kind == "" {
		kind = common.DefaultMessageKind
	}
	if !validKind(kind) || !env.WellFormed() {
		return nil, common.ErrValidation
	}

	if err := s.guard.RequireActiveMember(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	if replyTo != nil {
		parent, err := s.repomanager.Messages(s.repomanager.Conn()).GetByID(ctx, *replyTo)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrDanglingReply
			}
			return nil, common.Upstream(err)
		}
		if parent.RoomID != roomID {
			return nil, common.ErrDanglingReply
		}
	}

	var stored *models.Message
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		seq, at, err := s.repomanager.Rooms(tx).NextSequence(ctx, roomID)
		if err != nil {
			return err
		}
		stored, err = s.repomanager.Messages(tx).Create(ctx, &models.Message{
			RoomID:    roomID,
			SenderID:  senderID,
			Seq:       seq,
			Envelope:  env,
			Kind:      kind,
			ReplyToID: replyTo,
			CreatedAt: at,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, common.Upstream(err)
	}

	s.logger.Debug(ctx, "message appended", "room_id", roomID, "seq", stored.Seq, "kind", kind)
	return stored, nil
}

// Read returns one page of history in ascending order. A zero limit means
// DefaultPageSize; larger limits are clamped. Pages may shift when messages
// are appended between calls.
func (s *MessageService) Read(ctx context.Context, roomID, requesterID string, limit, offset int) ([]*models.Message, error) {
	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", common.ErrValidation)
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	if err := s.guard.RequireActiveMember(ctx, roomID, requesterID); err != nil {
		return nil, err
	}

	msgs, err := s.repomanager.Messages(s.repomanager.Conn()).List(ctx, roomID, limit, offset)
	if err != nil {
		return nil, common.Upstream(err)
	}
	return msgs, nil
}

// Edit replaces the envelope of the caller's own message. Messages of other
// senders or other rooms are reported as common.ErrForbidden.
func (s *MessageService) Edit(ctx context.Context, roomID, senderID, messageID string, env models.Envelope) (*models.Message, error) {
	if !env.WellFormed() {
		return nil, common.ErrValidation
	}
	if err := s.guard.RequireActiveMember(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	repo := s.repomanager.Messages(s.repomanager.Conn())
	msg, err := repo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, common.Upstream(err)
	}
	if msg.RoomID != roomID || msg.SenderID != senderID {
		return nil, common.ErrForbidden
	}

	if err := repo.UpdateEnvelope(ctx, messageID, senderID, env, s.now()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, common.Upstream(err)
	}

	updated, err := repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, common.Upstream(err)
	}
	return updated, nil
}
