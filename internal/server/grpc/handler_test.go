package grpc

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/chatapi"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// ---- fakes ----

type fakeAttachments struct {
	key, url string
	err      error
	gotRoom  string
	gotUser  string
}

func (f *fakeAttachments) PresignUpload(ctx context.Context, roomID, userID string) (string, string, error) {
	f.gotRoom, f.gotUser = roomID, userID
	return f.key, f.url, f.err
}

func (f *fakeAttachments) PresignDownload(ctx context.Context, roomID, userID, key string) (string, error) {
	f.gotRoom, f.gotUser = roomID, userID
	return f.url, f.err
}

// ---- harness ----

type harness struct {
	client      *chatapi.ChatServiceClient
	attachments *fakeAttachments
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		SecretKey:                    "secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	m := repomanager.NewInMemoryRepositoryManager()
	guard := services.NewAccessGuard(m)
	att := &fakeAttachments{}

	s := NewGRPCServer("", logging.Nop{}, Services{
		Users:       services.NewUserService(m, auth.SHA256Verifier{}, cfg, logging.Nop{}),
		Rooms:       services.NewRoomService(m, guard, logging.Nop{}),
		Messages:    services.NewMessageService(m, guard, logging.Nop{}, 0),
		Attachments: att,
	}, cfg.SecretKey)

	lis := bufconn.Listen(1 << 20)
	srv := s.newServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{client: chatapi.NewChatServiceClient(conn), attachments: att}
}

type session struct {
	ctx    context.Context
	userID string
	salt   []byte
}

func (h *harness) signup(t *testing.T, name string) session {
	t.Helper()
	ctx := context.Background()

	_, err := h.client.Register(ctx, &chatapi.RegisterRequest{Username: name, Password: "pw"})
	require.NoError(t, err)

	res, err := h.client.Login(ctx, &chatapi.LoginRequest{Username: name, Password: "pw"})
	require.NoError(t, err)

	return session{
		ctx:    metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, res.AccessToken),
		userID: res.UserID,
		salt:   res.Salt,
	}
}

func wireEnvelope(tag byte) chatapi.Envelope {
	return chatapi.Envelope{
		Ciphertext: bytes.Repeat([]byte{tag}, models.EnvelopeMinCTSize),
		IV:         make([]byte, models.EnvelopeIVSize),
	}
}

// ---- tests ----

func TestHandlers_AccountFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pong, err := h.client.Ping(ctx, &chatapi.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", pong.Status)

	alice := h.signup(t, "alice")
	assert.Len(t, alice.salt, services.SaltSize)

	_, err = h.client.Register(ctx, &chatapi.RegisterRequest{Username: "alice", Password: "other"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = h.client.Register(ctx, &chatapi.RegisterRequest{Username: "", Password: "pw"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, errWrong := h.client.Login(ctx, &chatapi.LoginRequest{Username: "alice", Password: "nope"})
	_, errUnknown := h.client.Login(ctx, &chatapi.LoginRequest{Username: "ghost", Password: "pw"})
	assert.Equal(t, codes.Unauthenticated, status.Code(errWrong))
	assert.Equal(t, status.Convert(errWrong).Message(), status.Convert(errUnknown).Message())

	res, err := h.client.Login(ctx, &chatapi.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, alice.salt, res.Salt)

	pair, err := h.client.RefreshToken(ctx, &chatapi.RefreshTokenRequest{RefreshToken: res.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = h.client.RefreshToken(ctx, &chatapi.RefreshTokenRequest{RefreshToken: res.RefreshToken})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHandlers_ProtectedNeedToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.ListRooms(context.Background(), &chatapi.ListRoomsRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHandlers_RoomAndMessageFlow(t *testing.T) {
	h := newHarness(t)
	alice := h.signup(t, "alice")
	bob := h.signup(t, "bob")
	carol := h.signup(t, "carol")

	room, err := h.client.CreateRoom(alice.ctx, &chatapi.CreateRoomRequest{Name: "general", Participants: []string{"bob", "ghost"}})
	require.NoError(t, err)

	members, err := h.client.ListMembers(bob.ctx, &chatapi.ListMembersRequest{RoomID: room.RoomID})
	require.NoError(t, err)
	require.Len(t, members.Members, 2)

	first, err := h.client.SendMessage(alice.ctx, &chatapi.SendMessageRequest{RoomID: room.RoomID, Envelope: wireEnvelope('a')})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)

	reply, err := h.client.SendMessage(bob.ctx, &chatapi.SendMessageRequest{RoomID: room.RoomID, Envelope: wireEnvelope('b'), ReplyToID: &first.MessageID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), reply.Seq)

	_, err = h.client.SendMessage(carol.ctx, &chatapi.SendMessageRequest{RoomID: room.RoomID, Envelope: wireEnvelope('c')})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = h.client.ListMessages(carol.ctx, &chatapi.ListMessagesRequest{RoomID: room.RoomID})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	missing := "00000000-0000-0000-0000-000000000000"
	_, err = h.client.SendMessage(bob.ctx, &chatapi.SendMessageRequest{RoomID: room.RoomID, Envelope: wireEnvelope('d'), ReplyToID: &missing})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	list, err := h.client.ListMessages(bob.ctx, &chatapi.ListMessagesRequest{RoomID: room.RoomID})
	require.NoError(t, err)
	require.Len(t, list.Messages, 2)
	assert.Equal(t, "alice", list.Messages[0].Sender)
	assert.Equal(t, wireEnvelope('a'), list.Messages[0].Envelope)
	require.NotNil(t, list.Messages[1].ReplyToSender)
	assert.Equal(t, "alice", *list.Messages[1].ReplyToSender)
	assert.Equal(t, common.DefaultMessageKind, list.Messages[1].Kind)

	rooms, err := h.client.ListRooms(alice.ctx, &chatapi.ListRoomsRequest{})
	require.NoError(t, err)
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, 1, rooms.Rooms[0].UnreadCount)
	require.NotNil(t, rooms.Rooms[0].LatestMessage)
	assert.Equal(t, reply.MessageID, rooms.Rooms[0].LatestMessage.ID)

	_, err = h.client.MarkRead(alice.ctx, &chatapi.MarkReadRequest{RoomID: room.RoomID})
	require.NoError(t, err)
	rooms, err = h.client.ListRooms(alice.ctx, &chatapi.ListRoomsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, rooms.Rooms[0].UnreadCount)

	edited, err := h.client.EditMessage(alice.ctx, &chatapi.EditMessageRequest{RoomID: room.RoomID, MessageID: first.MessageID, Envelope: wireEnvelope('e')})
	require.NoError(t, err)
	assert.True(t, edited.Message.IsEdited)

	_, err = h.client.EditMessage(bob.ctx, &chatapi.EditMessageRequest{RoomID: room.RoomID, MessageID: first.MessageID, Envelope: wireEnvelope('f')})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	added, err := h.client.AddMember(alice.ctx, &chatapi.AddMemberRequest{RoomID: room.RoomID, Username: "carol"})
	require.NoError(t, err)
	assert.Equal(t, "carol", added.Member.Username)

	_, err = h.client.LeaveRoom(bob.ctx, &chatapi.LeaveRoomRequest{RoomID: room.RoomID})
	require.NoError(t, err)
	_, err = h.client.ListMessages(bob.ctx, &chatapi.ListMessagesRequest{RoomID: room.RoomID})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestHandlers_EnvelopeValidatedAtEdge(t *testing.T) {
	h := newHarness(t)
	alice := h.signup(t, "alice")
	room, err := h.client.CreateRoom(alice.ctx, &chatapi.CreateRoomRequest{Name: "r"})
	require.NoError(t, err)

	bad := []chatapi.Envelope{
		{Ciphertext: make([]byte, 16), IV: make([]byte, 11)},
		{Ciphertext: make([]byte, 15), IV: make([]byte, 12)},
		{},
	}
	for _, env := range bad {
		_, err := h.client.SendMessage(alice.ctx, &chatapi.SendMessageRequest{RoomID: room.RoomID, Envelope: env})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	}

	_, err = h.client.ListMessages(alice.ctx, &chatapi.ListMessagesRequest{RoomID: room.RoomID, Limit: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHandlers_Attachments(t *testing.T) {
	h := newHarness(t)
	alice := h.signup(t, "alice")

	h.attachments.key, h.attachments.url = "rooms/r1/k", "https://s3/put"
	up, err := h.client.PresignUpload(alice.ctx, &chatapi.PresignUploadRequest{RoomID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "rooms/r1/k", up.StorageKey)
	assert.Equal(t, "https://s3/put", up.URL)
	assert.Equal(t, alice.userID, h.attachments.gotUser)

	h.attachments.err = common.ErrForbidden
	_, err = h.client.PresignDownload(alice.ctx, &chatapi.PresignDownloadRequest{RoomID: "r1", StorageKey: "rooms/r2/k"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestCaller_MissingIdentity(t *testing.T) {
	s := newTestServer("secret")

	_, err := s.CreateRoom(context.Background(), &chatapi.CreateRoomRequest{Name: "x"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
