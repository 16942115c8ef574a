package client

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/chatapi"
)

// Client is the transport-agnostic view of the chat server the session
// layer talks to. Envelopes are already encrypted when they get here.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*chatapi.LoginResponse, error)

	CreateRoom(ctx context.Context, name string, participants []string) (string, error)
	ListRooms(ctx context.Context) ([]chatapi.RoomSummary, error)
	ListMembers(ctx context.Context, roomID string) ([]chatapi.Member, error)
	AddMember(ctx context.Context, roomID, username string) (*chatapi.Member, error)
	LeaveRoom(ctx context.Context, roomID string) error
	MarkRead(ctx context.Context, roomID string) error

	SendMessage(ctx context.Context, req *chatapi.SendMessageRequest) (*chatapi.SendMessageResponse, error)
	ListMessages(ctx context.Context, roomID string, limit, offset int) ([]chatapi.Message, error)
	EditMessage(ctx context.Context, roomID, messageID string, env chatapi.Envelope) (*chatapi.Message, error)

	PresignUpload(ctx context.Context, roomID string) (key, url string, err error)
	PresignDownload(ctx context.Context, roomID, key string) (string, error)
}
