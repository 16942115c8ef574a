// Package memory is a process-local ledger used in development mode and
// tests. It honours the same contracts as the PostgreSQL repositories: unique
// usernames, a per-room sequence, generated ids. A single mutex serialises
// all access.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/google/uuid"
)

type roomRow struct {
	room          models.Room
	lastSeq       int64
	lastMessageAt time.Time
}

type memberKey struct {
	roomID string
	userID string
}

// Store holds every table. Repositories returned by its accessors share it.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users        map[string]*models.User
	usernames    map[string]string
	rooms        map[string]*roomRow
	members      map[memberKey]*models.Membership
	messages     map[string]*models.Message
	roomMessages map[string][]string
	tokens       map[string]*models.RefreshToken

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]*models.User),
		usernames:    make(map[string]string),
		rooms:        make(map[string]*roomRow),
		members:      make(map[memberKey]*models.Membership),
		messages:     make(map[string]*models.Message),
		roomMessages: make(map[string][]string),
		tokens:       make(map[string]*models.RefreshToken),
		now:          time.Now,
	}
}

// WithTx runs fn while holding the transaction lock, so at most one
// transaction is in flight. There is no rollback: memory writes cannot fail
// halfway through.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (s *Store) Users() *Users                 { return &Users{s: s} }
func (s *Store) Rooms() *Rooms                 { return &Rooms{s: s} }
func (s *Store) Memberships() *Memberships     { return &Memberships{s: s} }
func (s *Store) Messages() *Messages           { return &Messages{s: s} }
func (s *Store) RefreshTokens() *RefreshTokens { return &RefreshTokens{s: s} }

type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.usernames[user.UserName]; ok {
		return nil, common.ErrUsernameTaken
	}
	u := *user
	u.ID = uuid.NewString()
	u.CreatedAt = r.s.now()
	r.s.users[u.ID] = &u
	r.s.usernames[u.UserName] = u.ID

	out := u
	return &out, nil
}

func (r *Users) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.usernames[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := *r.s.users[id]
	return &u, nil
}

func (r *Users) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

type Rooms struct{ s *Store }

func (r *Rooms) Create(_ context.Context, room *models.Room) (*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[room.CreatorID]; !ok {
		return nil, common.ErrorNotFound
	}
	row := &roomRow{room: *room}
	row.room.ID = uuid.NewString()
	row.room.CreatedAt = r.s.now()
	r.s.rooms[row.room.ID] = row

	out := row.room
	return &out, nil
}

func (r *Rooms) GetByID(_ context.Context, id string) (*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.rooms[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := row.room
	return &out, nil
}

func (r *Rooms) ListForUser(_ context.Context, userID string) ([]*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []*roomRow
	for key, m := range r.s.members {
		if key.userID == userID && m.IsActive {
			if row, ok := r.s.rooms[key.roomID]; ok {
				rows = append(rows, row)
			}
		}
	}
	activity := func(row *roomRow) time.Time {
		if row.lastMessageAt.After(row.room.CreatedAt) {
			return row.lastMessageAt
		}
		return row.room.CreatedAt
	}
	sort.Slice(rows, func(i, j int) bool {
		ai, aj := activity(rows[i]), activity(rows[j])
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return rows[i].room.ID < rows[j].room.ID
	})

	result := make([]*models.Room, 0, len(rows))
	for _, row := range rows {
		out := row.room
		result = append(result, &out)
	}
	return result, nil
}

func (r *Rooms) NextSequence(_ context.Context, roomID string) (int64, time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.rooms[roomID]
	if !ok {
		return 0, time.Time{}, common.ErrorNotFound
	}
	row.lastSeq++
	if now := r.s.now(); now.After(row.lastMessageAt) {
		row.lastMessageAt = now
	}
	return row.lastSeq, row.lastMessageAt, nil
}

type Memberships struct{ s *Store }

func (r *Memberships) Get(_ context.Context, roomID, userID string) (*models.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.members[memberKey{roomID, userID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyMembership(m), nil
}

func (r *Memberships) Save(_ context.Context, m *models.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.rooms[m.RoomID]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := r.s.users[m.UserID]; !ok {
		return common.ErrorNotFound
	}
	key := memberKey{m.RoomID, m.UserID}
	if cur, ok := r.s.members[key]; ok {
		cur.IsActive = m.IsActive
		cur.JoinedAt = m.JoinedAt
		return nil
	}
	stored := copyMembership(m)
	stored.LastReadAt = nil
	r.s.members[key] = stored
	return nil
}

func (r *Memberships) ListActive(_ context.Context, roomID string) ([]*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*models.Member
	for key, m := range r.s.members {
		if key.roomID != roomID || !m.IsActive {
			continue
		}
		result = append(result, &models.Member{
			UserID:   key.userID,
			UserName: r.s.users[key.userID].UserName,
			JoinedAt: m.JoinedAt,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].JoinedAt.Equal(result[j].JoinedAt) {
			return result[i].JoinedAt.Before(result[j].JoinedAt)
		}
		return result[i].UserName < result[j].UserName
	})
	return result, nil
}

func (r *Memberships) MarkRead(_ context.Context, roomID, userID string) (time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.members[memberKey{roomID, userID}]
	if !ok || !m.IsActive {
		return time.Time{}, common.ErrorNotFound
	}
	at := r.s.now()
	m.LastReadAt = &at
	return at, nil
}

func copyMembership(m *models.Membership) *models.Membership {
	out := *m
	if m.LastReadAt != nil {
		t := *m.LastReadAt
		out.LastReadAt = &t
	}
	return &out
}

type Messages struct{ s *Store }

func (r *Messages) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.rooms[msg.RoomID]; !ok {
		return nil, common.ErrorNotFound
	}
	for _, id := range r.s.roomMessages[msg.RoomID] {
		if r.s.messages[id].Seq == msg.Seq {
			return nil, common.ErrValidation
		}
	}
	m := *msg
	m.ID = uuid.NewString()
	if msg.ReplyToID != nil {
		parent := *msg.ReplyToID
		m.ReplyToID = &parent
	}
	m.Envelope = models.Envelope{
		Ciphertext: append([]byte(nil), msg.Envelope.Ciphertext...),
		IV:         append([]byte(nil), msg.Envelope.IV...),
	}
	r.s.messages[m.ID] = &m

	ids := append(r.s.roomMessages[m.RoomID], m.ID)
	sort.SliceStable(ids, func(i, j int) bool {
		return r.s.messages[ids[i]].Seq < r.s.messages[ids[j]].Seq
	})
	r.s.roomMessages[m.RoomID] = ids

	return r.s.view(&m), nil
}

func (r *Messages) GetByID(_ context.Context, id string) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.s.view(m), nil
}

func (r *Messages) List(_ context.Context, roomID string, limit, offset int) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := r.s.roomMessages[roomID]
	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	result := make([]*models.Message, 0, end-offset)
	for _, id := range ids[offset:end] {
		result = append(result, r.s.view(r.s.messages[id]))
	}
	return result, nil
}

func (r *Messages) Latest(_ context.Context, roomID string) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := r.s.roomMessages[roomID]
	if len(ids) == 0 {
		return nil, common.ErrorNotFound
	}
	return r.s.view(r.s.messages[ids[len(ids)-1]]), nil
}

func (r *Messages) CountUnread(_ context.Context, roomID, userID string, since *time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, id := range r.s.roomMessages[roomID] {
		m := r.s.messages[id]
		if m.SenderID == userID {
			continue
		}
		if since == nil || m.CreatedAt.After(*since) {
			n++
		}
	}
	return n, nil
}

func (r *Messages) UpdateEnvelope(_ context.Context, id, senderID string, env models.Envelope, editedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok || m.SenderID != senderID {
		return common.ErrorNotFound
	}
	m.Envelope = models.Envelope{
		Ciphertext: append([]byte(nil), env.Ciphertext...),
		IV:         append([]byte(nil), env.IV...),
	}
	m.IsEdited = true
	m.EditedAt = &editedAt
	return nil
}

// view resolves the joined usernames. Callers hold s.mu.
func (s *Store) view(m *models.Message) *models.Message {
	out := *m
	if u, ok := s.users[m.SenderID]; ok {
		out.SenderName = u.UserName
	}
	if m.ReplyToID != nil {
		id := *m.ReplyToID
		out.ReplyToID = &id
		if parent, ok := s.messages[id]; ok {
			if u, ok := s.users[parent.SenderID]; ok {
				name := u.UserName
				out.ReplyToSender = &name
			}
		}
	}
	if m.EditedAt != nil {
		t := *m.EditedAt
		out.EditedAt = &t
	}
	return &out
}

type RefreshTokens struct{ s *Store }

func (r *RefreshTokens) Issue(_ context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *t
	r.s.tokens[t.Token] = &cp
	return nil
}

func (r *RefreshTokens) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.s.tokens, token)
	return t, nil
}
