// Package services contains the client's chat session: it derives the
// message key at login, encrypts everything it sends and decrypts everything
// it reads. The key never leaves this package.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/chatapi"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"github.com/dmitrijs2005/gophchat/internal/filex"
	"github.com/dmitrijs2005/gophchat/internal/netx"
)

// MaxAttachmentSize keeps the encrypted blob within what downloads accept.
const MaxAttachmentSize = netx.MaxDownloadSize - cryptox.TagSize

var ErrNotLoggedIn = errors.New("not logged in")

// Object storage transfer, replaced in tests.
var (
	uploadBlob   = netx.UploadToPresignedURL
	downloadBlob = netx.DownloadFromPresignedURL
)

// ChatService is the CLI's view of a logged-in chat session.
type ChatService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Logout()
	CurrentUser() (string, bool)
	ForgetSalt(ctx context.Context, username string) error
	Ping(ctx context.Context) error

	CreateRoom(ctx context.Context, name string, participants []string) (string, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	Members(ctx context.Context, roomID string) ([]models.Member, error)
	AddMember(ctx context.Context, roomID, username string) error
	Leave(ctx context.Context, roomID string) error
	MarkRead(ctx context.Context, roomID string) error

	Send(ctx context.Context, roomID, text string, replyTo *string) (*models.Message, error)
	Edit(ctx context.Context, roomID, messageID, text string) (*models.Message, error)
	History(ctx context.Context, roomID string, page int) ([]models.Message, error)

	SendFile(ctx context.Context, roomID, path string) (*models.Message, error)
	FetchFile(ctx context.Context, roomID string, d *models.FileDescriptor) ([]byte, error)
}

type session struct {
	userID   string
	username string
	key      []byte
}

type chatService struct {
	client   client.Client
	meta     metadata.Repository
	pageSize int

	mu      sync.RWMutex
	session *session
}

func NewChatService(c client.Client, meta metadata.Repository, pageSize int) ChatService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &chatService{client: c, meta: meta, pageSize: pageSize}
}

func (s *chatService) current() (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, ErrNotLoggedIn
	}
	return s.session, nil
}

func (s *chatService) Register(ctx context.Context, username, password string) error {
	return s.client.Register(ctx, username, password)
}

// Login authenticates, checks the returned salt against the local pin and
// derives the message key from password and salt.
func (s *chatService) Login(ctx context.Context, username, password string) error {
	res, err := s.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := metadata.PinSalt(ctx, s.meta, res.Username, res.Salt); err != nil {
		return err
	}

	key, err := cryptox.DeriveKey([]byte(password), res.Salt)
	if err != nil {
		return fmt.Errorf("key derivation: %w", err)
	}

	s.mu.Lock()
	s.session = &session{userID: res.UserID, username: res.Username, key: key}
	s.mu.Unlock()
	return nil
}

func (s *chatService) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		clear(s.session.key)
	}
	s.session = nil
}

// ForgetSalt drops the pinned salt so the next login accepts whatever the
// server returns. Messages encrypted under the old key stay unreadable.
func (s *chatService) ForgetSalt(ctx context.Context, username string) error {
	return metadata.UnpinSalt(ctx, s.meta, username)
}

func (s *chatService) CurrentUser() (string, bool) {
	sess, err := s.current()
	if err != nil {
		return "", false
	}
	return sess.username, true
}

func (s *chatService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *chatService) CreateRoom(ctx context.Context, name string, participants []string) (string, error) {
	if _, err := s.current(); err != nil {
		return "", err
	}
	return s.client.CreateRoom(ctx, name, participants)
}

func (s *chatService) ListRooms(ctx context.Context) ([]models.Room, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	rooms, err := s.client.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Room, 0, len(rooms))
	for _, r := range rooms {
		room := models.Room{
			ID:           r.RoomID,
			Name:         r.Name,
			Participants: r.Participants,
			UnreadCount:  r.UnreadCount,
			CreatedAt:    r.CreatedAt,
		}
		if r.LatestMessage != nil {
			latest := decryptMessage(*r.LatestMessage, sess.key)
			room.Latest = &latest
		}
		out = append(out, room)
	}
	return out, nil
}

func (s *chatService) Members(ctx context.Context, roomID string) ([]models.Member, error) {
	if _, err := s.current(); err != nil {
		return nil, err
	}
	members, err := s.client.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		out = append(out, models.Member{UserID: m.UserID, Username: m.Username, JoinedAt: m.JoinedAt})
	}
	return out, nil
}

func (s *chatService) AddMember(ctx context.Context, roomID, username string) error {
	if _, err := s.current(); err != nil {
		return err
	}
	_, err := s.client.AddMember(ctx, roomID, username)
	return err
}

func (s *chatService) Leave(ctx context.Context, roomID string) error {
	if _, err := s.current(); err != nil {
		return err
	}
	return s.client.LeaveRoom(ctx, roomID)
}

func (s *chatService) MarkRead(ctx context.Context, roomID string) error {
	if _, err := s.current(); err != nil {
		return err
	}
	return s.client.MarkRead(ctx, roomID)
}

func seal(plaintext, key []byte) (chatapi.Envelope, error) {
	ct, iv, err := cryptox.EncryptBytes(plaintext, key)
	if err != nil {
		return chatapi.Envelope{}, fmt.Errorf("encryption error: %w", err)
	}
	return chatapi.Envelope{Ciphertext: ct, IV: iv}, nil
}

func (s *chatService) Send(ctx context.Context, roomID, text string, replyTo *string) (*models.Message, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty message", common.ErrValidation)
	}

	env, err := seal([]byte(text), sess.key)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.SendMessage(ctx, &chatapi.SendMessageRequest{
		RoomID:    roomID,
		Envelope:  env,
		Kind:      common.DefaultMessageKind,
		ReplyToID: replyTo,
	})
	if err != nil {
		return nil, err
	}

	return &models.Message{
		ID:        resp.MessageID,
		Seq:       resp.Seq,
		Sender:    sess.username,
		SenderID:  sess.userID,
		Kind:      common.DefaultMessageKind,
		Text:      text,
		ReplyToID: replyTo,
		CreatedAt: resp.CreatedAt,
	}, nil
}

func (s *chatService) Edit(ctx context.Context, roomID, messageID, text string) (*models.Message, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty message", common.ErrValidation)
	}

	env, err := seal([]byte(text), sess.key)
	if err != nil {
		return nil, err
	}
	msg, err := s.client.EditMessage(ctx, roomID, messageID, env)
	if err != nil {
		return nil, err
	}
	out := decryptMessage(*msg, sess.key)
	return &out, nil
}

// History returns page (zero-based) of the room in ascending order.
func (s *chatService) History(ctx context.Context, roomID string, page int) ([]models.Message, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, fmt.Errorf("%w: negative page", common.ErrValidation)
	}

	msgs, err := s.client.ListMessages(ctx, roomID, s.pageSize, page*s.pageSize)
	if err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, decryptMessage(m, sess.key))
	}
	return out, nil
}

// SendFile encrypts the file at path, uploads the ciphertext to a presigned
// URL and posts a file message whose envelope holds the descriptor.
func (s *chatService) SendFile(ctx context.Context, roomID, path string) (*models.Message, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}

	data, err := filex.ReadFileLimited(path, MaxAttachmentSize)
	if err != nil {
		return nil, err
	}

	blob, iv, err := cryptox.EncryptBytes(data, sess.key)
	if err != nil {
		return nil, fmt.Errorf("encryption error: %w", err)
	}

	key, url, err := s.client.PresignUpload(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := uploadBlob(ctx, url, blob); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	d := models.FileDescriptor{StorageKey: key, Name: filepath.Base(path), IV: iv, Size: len(data)}
	plain, err := d.Marshal()
	if err != nil {
		return nil, err
	}
	env, err := seal(plain, sess.key)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.SendMessage(ctx, &chatapi.SendMessageRequest{
		RoomID:   roomID,
		Envelope: env,
		Kind:     common.FileMessageKind,
	})
	if err != nil {
		return nil, err
	}

	return &models.Message{
		ID:        resp.MessageID,
		Seq:       resp.Seq,
		Sender:    sess.username,
		SenderID:  sess.userID,
		Kind:      common.FileMessageKind,
		Text:      fileLabel(&d),
		File:      &d,
		CreatedAt: resp.CreatedAt,
	}, nil
}

// FetchFile downloads and decrypts an attachment. A blob that fails
// authentication yields cryptox.ErrAuthenticationFailure.
func (s *chatService) FetchFile(ctx context.Context, roomID string, d *models.FileDescriptor) ([]byte, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, models.ErrNotAFile
	}

	url, err := s.client.PresignDownload(ctx, roomID, d.StorageKey)
	if err != nil {
		return nil, err
	}
	blob, err := downloadBlob(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return cryptox.DecryptBytes(blob, d.IV, sess.key)
}

func fileLabel(d *models.FileDescriptor) string {
	return fmt.Sprintf("[file] %s (%d bytes)", d.Name, d.Size)
}

// decryptMessage never fails: envelopes that do not authenticate are marked
// Undecryptable and shown with a placeholder.
func decryptMessage(m chatapi.Message, key []byte) models.Message {
	out := models.Message{
		ID:            m.ID,
		Seq:           m.Seq,
		Sender:        m.Sender,
		SenderID:      m.SenderID,
		Kind:          m.Kind,
		IsEdited:      m.IsEdited,
		ReplyToID:     m.ReplyToID,
		ReplyToSender: m.ReplyToSender,
		CreatedAt:     m.CreatedAt,
	}

	plain, err := cryptox.DecryptBytes(m.Envelope.Ciphertext, m.Envelope.IV, key)
	if err != nil {
		out.Undecryptable = true
		out.Text = models.UndecryptablePlaceholder
		return out
	}

	if m.Kind == common.FileMessageKind {
		d, err := models.UnmarshalFileDescriptor(plain)
		if err != nil {
			out.Undecryptable = true
			out.Text = models.UndecryptablePlaceholder
			return out
		}
		out.File = d
		out.Text = fileLabel(d)
		return out
	}

	out.Text = string(plain)
	return out
}
