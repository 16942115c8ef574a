package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
)

const MaxRoomNameLength = 128

// RoomService creates rooms and manages their membership.
type RoomService struct {
	repomanager repomanager.RepositoryManager
	guard       *AccessGuard
	logger      logging.Logger
	now         func() time.Time
}

func NewRoomService(m repomanager.RepositoryManager, guard *AccessGuard, logger logging.Logger) *RoomService {
	return &RoomService{
		repomanager: m,
		guard:       guard,
		logger:      logger.With("module", "room_service"),
		now:         time.Now,
	}
}

// CreateRoom writes the room and the creator's membership in one
// transaction, then adds each resolvable invitee. Unknown usernames are
// dropped; invitee failures are logged and do not fail the call.
func (s *RoomService) CreateRoom(ctx context.Context, name, creatorID string, memberUsernames []string) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxRoomNameLength {
		return nil, fmt.Errorf("%w: room name must be 1..%d characters", common.ErrValidation, MaxRoomNameLength)
	}

	var room *models.Room
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		room, err = s.repomanager.Rooms(tx).Create(ctx, &models.Room{
			Name:        name,
			CreatorID:   creatorID,
			IsEncrypted: true,
		})
		if err != nil {
			return err
		}
		return s.repomanager.Memberships(tx).Save(ctx, &models.Membership{
			RoomID:   room.ID,
			UserID:   creatorID,
			JoinedAt: s.now(),
			IsActive: true,
		})
	})
	if err != nil {
		return nil, common.Upstream(err)
	}

	added := s.addInvitees(ctx, room.ID, creatorID, memberUsernames)
	s.logger.Info(ctx, "room created", "room_id", room.ID, "creator_id", creatorID, "invitees", added)

	return room, nil
}

func (s *RoomService) addInvitees(ctx context.Context, roomID, creatorID string, usernames []string) int {
	conn := s.repomanager.Conn()
	users := s.repomanager.Users(conn)
	members := s.repomanager.Memberships(conn)

	seen := map[string]struct{}{creatorID: {}}
	added := 0
	for _, username := range usernames {
		username = strings.TrimSpace(username)
		if username == "" {
			continue
		}
		u, err := users.GetUserByLogin(ctx, username)
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				s.logger.Warn(ctx, "invitee lookup failed", "room_id", roomID, "error", err)
			}
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}

		err = members.Save(ctx, &models.Membership{
			RoomID:   roomID,
			UserID:   u.ID,
			JoinedAt: s.now(),
			IsActive: true,
		})
		if err != nil {
			s.logger.Warn(ctx, "invitee membership failed", "room_id", roomID, "user_id", u.ID, "error", err)
			continue
		}
		added++
	}
	return added
}

// ListRooms returns the caller's active rooms with participants, the latest
// envelope and the unread count.
func (s *RoomService) ListRooms(ctx context.Context, userID string) ([]*models.RoomSummary, error) {
	conn := s.repomanager.Conn()
	rooms, err := s.repomanager.Rooms(conn).ListForUser(ctx, userID)
	if err != nil {
		return nil, common.Upstream(err)
	}

	members := s.repomanager.Memberships(conn)
	messages := s.repomanager.Messages(conn)

	result := make([]*models.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summary := &models.RoomSummary{Room: room}

		active, err := members.ListActive(ctx, room.ID)
		if err != nil {
			return nil, common.Upstream(err)
		}
		for _, m := range active {
			summary.Participants = append(summary.Participants, m.UserName)
		}

		latest, err := messages.Latest(ctx, room.ID)
		switch {
		case err == nil:
			summary.LatestMessage = latest
		case !errors.Is(err, common.ErrorNotFound):
			return nil, common.Upstream(err)
		}

		own, err := members.Get(ctx, room.ID, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// left between the two reads
				continue
			}
			return nil, common.Upstream(err)
		}
		summary.UnreadCount, err = messages.CountUnread(ctx, room.ID, userID, own.LastReadAt)
		if err != nil {
			return nil, common.Upstream(err)
		}

		result = append(result, summary)
	}
	return result, nil
}

// MarkRead clears the caller's unread count for everything created up to now.
func (s *RoomService) MarkRead(ctx context.Context, roomID, userID string) (time.Time, error) {
	if err := s.guard.RequireActiveMember(ctx, roomID, userID); err != nil {
		return time.Time{}, err
	}
	at, err := s.repomanager.Memberships(s.repomanager.Conn()).MarkRead(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return time.Time{}, common.ErrForbidden
		}
		return time.Time{}, common.Upstream(err)
	}
	return at, nil
}

// Members lists the room's active members to one of them.
func (s *RoomService) Members(ctx context.Context, roomID, userID string) ([]*models.Member, error) {
	if err := s.guard.RequireActiveMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	members, err := s.repomanager.Memberships(s.repomanager.Conn()).ListActive(ctx, roomID)
	if err != nil {
		return nil, common.Upstream(err)
	}
	return members, nil
}

// AddMember lets an active member invite username, or bring back a member
// who left. Adding someone already active is a no-op.
func (s *RoomService) AddMember(ctx context.Context, roomID, actorID, username string) (*models.Member, error) {
	if err := s.guard.RequireActiveMember(ctx, roomID, actorID); err != nil {
		return nil, err
	}

	conn := s.repomanager.Conn()
	u, err := s.repomanager.Users(conn).GetUserByLogin(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown user", common.ErrValidation)
		}
		return nil, common.Upstream(err)
	}

	members := s.repomanager.Memberships(conn)
	current, err := members.Get(ctx, roomID, u.ID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, common.Upstream(err)
	}
	if current.State() == models.MembershipActive {
		return &models.Member{UserID: u.ID, UserName: u.UserName, JoinedAt: current.JoinedAt}, nil
	}

	if _, err := current.State().Join(); err != nil {
		return nil, err
	}
	m := &models.Membership{RoomID: roomID, UserID: u.ID, JoinedAt: s.now(), IsActive: true}
	if err := members.Save(ctx, m); err != nil {
		return nil, common.Upstream(err)
	}

	s.logger.Info(ctx, "member added", "room_id", roomID, "user_id", u.ID, "by", actorID)
	return &models.Member{UserID: u.ID, UserName: u.UserName, JoinedAt: m.JoinedAt}, nil
}

// Leave deactivates the caller's membership. History stays in the room.
func (s *RoomService) Leave(ctx context.Context, roomID, userID string) error {
	if err := s.guard.RequireActiveMember(ctx, roomID, userID); err != nil {
		return err
	}

	members := s.repomanager.Memberships(s.repomanager.Conn())
	current, err := members.Get(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrForbidden
		}
		return common.Upstream(err)
	}
	if _, err := current.State().Leave(); err != nil {
		return common.ErrForbidden
	}

	current.IsActive = false
	if err := members.Save(ctx, current); err != nil {
		return common.Upstream(err)
	}

	s.logger.Info(ctx, "member left", "room_id", roomID, "user_id", userID)
	return nil
}
