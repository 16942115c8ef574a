package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchat/internal/client/services"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	services.ChatService

	user     string
	loginErr error

	rooms     []models.Room
	history   map[int][]models.Message
	pages     []int
	members   []models.Member
	marked    []string
	invited   []string
	left      []string
	sent      []string
	replyTo   []*string
	edited    map[string]string
	files     map[string][]byte
	password  string
	forgotten []string
}

func newFakeChat() *fakeChat {
	return &fakeChat{history: map[int][]models.Message{}, edited: map[string]string{}, files: map[string][]byte{}}
}

func (f *fakeChat) Register(ctx context.Context, username, password string) error {
	f.password = password
	return nil
}

func (f *fakeChat) Login(ctx context.Context, username, password string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.user, f.password = username, password
	return nil
}

func (f *fakeChat) ForgetSalt(ctx context.Context, username string) error {
	f.forgotten = append(f.forgotten, username)
	return nil
}

func (f *fakeChat) Logout()                        { f.user = "" }
func (f *fakeChat) CurrentUser() (string, bool)    { return f.user, f.user != "" }
func (f *fakeChat) Ping(ctx context.Context) error { return nil }
func (f *fakeChat) ListRooms(ctx context.Context) ([]models.Room, error) {
	return f.rooms, nil
}

func (f *fakeChat) CreateRoom(ctx context.Context, name string, participants []string) (string, error) {
	return "room-" + name, nil
}

func (f *fakeChat) Members(ctx context.Context, roomID string) ([]models.Member, error) {
	return f.members, nil
}

func (f *fakeChat) AddMember(ctx context.Context, roomID, username string) error {
	f.invited = append(f.invited, username)
	return nil
}

func (f *fakeChat) Leave(ctx context.Context, roomID string) error {
	f.left = append(f.left, roomID)
	return nil
}

func (f *fakeChat) MarkRead(ctx context.Context, roomID string) error {
	f.marked = append(f.marked, roomID)
	return nil
}

func (f *fakeChat) History(ctx context.Context, roomID string, page int) ([]models.Message, error) {
	f.pages = append(f.pages, page)
	return f.history[page], nil
}

func (f *fakeChat) Send(ctx context.Context, roomID, text string, replyTo *string) (*models.Message, error) {
	f.sent = append(f.sent, text)
	f.replyTo = append(f.replyTo, replyTo)
	return &models.Message{ID: fmt.Sprintf("m%d", len(f.sent)), Seq: int64(100 + len(f.sent)), Sender: f.user, Text: text, ReplyToID: replyTo}, nil
}

func (f *fakeChat) Edit(ctx context.Context, roomID, messageID, text string) (*models.Message, error) {
	f.edited[messageID] = text
	return &models.Message{ID: messageID, Seq: 1, Sender: f.user, Text: text, IsEdited: true}, nil
}

func (f *fakeChat) SendFile(ctx context.Context, roomID, path string) (*models.Message, error) {
	d := &models.FileDescriptor{StorageKey: "rooms/" + roomID + "/k", Name: filepath.Base(path), IV: []byte("iv"), Size: 3}
	return &models.Message{ID: "f1", Seq: 7, Sender: f.user, Kind: common.FileMessageKind, Text: "[file] " + d.Name, File: d}, nil
}

func (f *fakeChat) FetchFile(ctx context.Context, roomID string, d *models.FileDescriptor) ([]byte, error) {
	return f.files[d.StorageKey], nil
}

func newTestApp(t *testing.T, chat *fakeChat, input string) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := &config.Config{PageSize: 2}
	return newApp(cfg, chat, nil, strings.NewReader(input), &out), &out
}

func stubCredentials(t *testing.T, user, pass string) {
	t.Helper()
	oldText, oldPass := getSimpleText, getPassword
	t.Cleanup(func() { getSimpleText, getPassword = oldText, oldPass })
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return user, nil }
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pass), nil }
}

func roomWithLatest(seq int64) models.Room {
	return models.Room{ID: "r1", Name: "general", Latest: &models.Message{Seq: seq, Sender: "bob", Text: "hi"}}
}

func TestLoginAndLogout(t *testing.T) {
	stubCredentials(t, "alice", "pw")
	chat := newFakeChat()
	app, out := newTestApp(t, chat, "")

	require.NoError(t, app.Login(context.Background()))
	assert.True(t, app.isLoggedIn())
	assert.Equal(t, "pw", chat.password)
	assert.Equal(t, "alice", app.status())
	assert.Contains(t, out.String(), "Logged in as alice")

	require.NoError(t, app.Logout(context.Background()))
	assert.False(t, app.isLoggedIn())
	assert.Equal(t, "guest", app.status())
}

func TestLogin_SaltChangedWarns(t *testing.T) {
	stubCredentials(t, "alice", "pw")
	chat := newFakeChat()
	chat.loginErr = metadata.ErrSaltChanged
	app, out := newTestApp(t, chat, "")

	err := app.Login(context.Background())
	require.ErrorIs(t, err, metadata.ErrSaltChanged)
	assert.Contains(t, out.String(), "WARNING")
	assert.False(t, app.isLoggedIn())
}

func TestRegister_EmptyUsername(t *testing.T) {
	stubCredentials(t, "", "pw")
	app, _ := newTestApp(t, newFakeChat(), "")
	require.ErrorIs(t, app.Register(context.Background()), common.ErrValidation)
}

func TestRegister_OK(t *testing.T) {
	stubCredentials(t, "bob", "pw")
	chat := newFakeChat()
	app, out := newTestApp(t, chat, "")
	require.NoError(t, app.Register(context.Background()))
	assert.Equal(t, "pw", chat.password)
	assert.Contains(t, out.String(), "Registered bob")
}

func TestRoomsAndOpen_ShowsLatestPageAndMarksRead(t *testing.T) {
	chat := newFakeChat()
	chat.user = "alice"
	chat.rooms = []models.Room{roomWithLatest(5)}
	chat.history[2] = []models.Message{{ID: "m5", Seq: 5, Sender: "bob", Text: "latest"}}
	app, out := newTestApp(t, chat, "")
	ctx := context.Background()

	require.NoError(t, app.Rooms(ctx))
	assert.Contains(t, out.String(), "1. general")

	require.NoError(t, app.Open(ctx, []string{"1"}))
	assert.Equal(t, []int{2}, chat.pages)
	assert.Equal(t, []string{"r1"}, chat.marked)
	assert.Contains(t, out.String(), "#5")
	assert.Contains(t, out.String(), "latest")
	assert.Equal(t, "alice #general", app.status())
}

func TestOpen_ByNameAndUnknown(t *testing.T) {
	chat := newFakeChat()
	chat.user = "alice"
	chat.rooms = []models.Room{{ID: "r1", Name: "general"}}
	app, _ := newTestApp(t, chat, "")

	require.NoError(t, app.Open(context.Background(), []string{"general"}))
	assert.Equal(t, []int{0}, chat.pages)

	require.Error(t, app.Open(context.Background(), []string{"nope"}))
	require.ErrorIs(t, app.Open(context.Background(), nil), common.ErrValidation)
}

func TestRoomCommandsNeedOpenRoom(t *testing.T) {
	app, _ := newTestApp(t, newFakeChat(), "")
	ctx := context.Background()
	for name, fn := range map[string]func() error{
		"send":    func() error { return app.Send(ctx, []string{"x"}) },
		"history": func() error { return app.History(ctx, nil) },
		"members": func() error { return app.Members(ctx) },
		"leave":   func() error { return app.Leave(ctx) },
		"read":    func() error { return app.MarkRead(ctx) },
		"getfile": func() error { return app.GetFile(ctx, []string{"1"}) },
	} {
		assert.ErrorIs(t, fn(), ErrNoRoom, name)
	}
}

func TestCreateRoom_ArgsAndPrompt(t *testing.T) {
	chat := newFakeChat()
	chat.user = "alice"
	app, out := newTestApp(t, chat, "")
	ctx := context.Background()

	require.NoError(t, app.CreateRoom(ctx, []string{"team", "bob"}))
	require.NotNil(t, app.room)
	assert.Equal(t, "room-team", app.room.ID)
	assert.Contains(t, out.String(), "Room team created")

	answers := []string{"", ""}
	old := getSimpleText
	t.Cleanup(func() { getSimpleText = old })
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	require.ErrorIs(t, app.CreateRoom(ctx, nil), common.ErrValidation)
}

func TestSendReplyEdit(t *testing.T) {
	chat := newFakeChat()
	chat.user = "alice"
	chat.history[0] = []models.Message{
		{ID: "a", Seq: 1, Sender: "alice", Text: "one"},
		{ID: "b", Seq: 2, Sender: "bob", Text: "two"},
	}
	app, out := newTestApp(t, chat, "multi\nline\n\n")
	app.room = &models.Room{ID: "r1", Name: "general"}
	ctx := context.Background()

	require.NoError(t, app.Send(ctx, []string{"hello", "all"}))
	require.NoError(t, app.Send(ctx, nil))
	assert.Equal(t, []string{"hello all", "multi\nline"}, chat.sent)

	require.NoError(t, app.Reply(ctx, []string{"#2", "ok"}))
	require.NotNil(t, chat.replyTo[2])
	assert.Equal(t, "b", *chat.replyTo[2])
	assert.Contains(t, out.String(), "(reply to bob)")

	require.NoError(t, app.Edit(ctx, []string{"1", "uno"}))
	assert.Equal(t, "uno", chat.edited["a"])
	assert.Contains(t, out.String(), "(edited)")

	require.ErrorIs(t, app.Reply(ctx, []string{"9", "x"}), common.ErrorNotFound)
	require.ErrorIs(t, app.Edit(ctx, []string{"abc", "x"}), common.ErrValidation)
}

func TestHistory_PageArgument(t *testing.T) {
	chat := newFakeChat()
	chat.user = "alice"
	app, out := newTestApp(t, chat, "")
	app.room = &models.Room{ID: "r1", Name: "general"}
	ctx := context.Background()

	require.NoError(t, app.History(ctx, []string{"3"}))
	assert.Equal(t, []int{2}, chat.pages)
	assert.Contains(t, out.String(), "(no messages)")
	require.ErrorIs(t, app.History(ctx, []string{"0"}), common.ErrValidation)
}

func TestMembersInviteLeave(t *testing.T) {
	chat := newFakeChat()
	chat.user = "alice"
	chat.members = []models.Member{{UserID: "u1", Username: "alice", JoinedAt: time.Now()}}
	app, out := newTestApp(t, chat, "")
	app.room = &models.Room{ID: "r1", Name: "general"}
	ctx := context.Background()

	require.NoError(t, app.Members(ctx))
	assert.Contains(t, out.String(), "alice (joined")

	require.NoError(t, app.Invite(ctx, []string{"bob"}))
	assert.Equal(t, []string{"bob"}, chat.invited)
	require.ErrorIs(t, app.Invite(ctx, nil), common.ErrValidation)

	require.NoError(t, app.Leave(ctx))
	assert.Equal(t, []string{"r1"}, chat.left)
	assert.Nil(t, app.room)
}

func TestSendFileAndGetFile(t *testing.T) {
	dir := t.TempDir()
	old := downloadsDir
	t.Cleanup(func() { downloadsDir = old })
	downloadsDir = func() (string, error) { return dir, nil }

	chat := newFakeChat()
	chat.user = "alice"
	chat.files["rooms/r1/k"] = []byte("abc")
	app, out := newTestApp(t, chat, "")
	app.room = &models.Room{ID: "r1", Name: "general"}
	ctx := context.Background()

	require.NoError(t, app.SendFile(ctx, []string{"/some/where/report.pdf"}))
	require.NoError(t, app.GetFile(ctx, []string{"7"}))

	data, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
	assert.Contains(t, out.String(), "Saved")
}

func TestGetFile_NotAFile(t *testing.T) {
	chat := newFakeChat()
	chat.user = "alice"
	chat.history[0] = []models.Message{{ID: "a", Seq: 1, Text: "plain"}}
	app, _ := newTestApp(t, chat, "")
	app.room = &models.Room{ID: "r1", Name: "general"}

	err := app.GetFile(context.Background(), []string{"1"})
	require.True(t, errors.Is(err, models.ErrNotAFile))
}

func TestUnpin(t *testing.T) {
	chat := newFakeChat()
	ctx := context.Background()

	stubCredentials(t, "no", "")
	app, out := newTestApp(t, chat, "")
	require.NoError(t, app.Unpin(ctx, []string{"alice"}))
	assert.Empty(t, chat.forgotten)
	assert.Contains(t, out.String(), "Cancelled")

	stubCredentials(t, "yes", "")
	require.NoError(t, app.Unpin(ctx, []string{"alice"}))
	assert.Equal(t, []string{"alice"}, chat.forgotten)

	require.ErrorIs(t, app.Unpin(ctx, nil), common.ErrValidation)
}
