package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/chatapi"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// chatRPC is the generated-style stub GRPCClient drives; tests swap it out.
type chatRPC interface {
	Register(ctx context.Context, in *chatapi.RegisterRequest, opts ...grpc.CallOption) (*chatapi.RegisterResponse, error)
	Login(ctx context.Context, in *chatapi.LoginRequest, opts ...grpc.CallOption) (*chatapi.LoginResponse, error)
	RefreshToken(ctx context.Context, in *chatapi.RefreshTokenRequest, opts ...grpc.CallOption) (*chatapi.RefreshTokenResponse, error)
	Ping(ctx context.Context, in *chatapi.PingRequest, opts ...grpc.CallOption) (*chatapi.PingResponse, error)
	CreateRoom(ctx context.Context, in *chatapi.CreateRoomRequest, opts ...grpc.CallOption) (*chatapi.CreateRoomResponse, error)
	ListRooms(ctx context.Context, in *chatapi.ListRoomsRequest, opts ...grpc.CallOption) (*chatapi.ListRoomsResponse, error)
	SendMessage(ctx context.Context, in *chatapi.SendMessageRequest, opts ...grpc.CallOption) (*chatapi.SendMessageResponse, error)
	ListMessages(ctx context.Context, in *chatapi.ListMessagesRequest, opts ...grpc.CallOption) (*chatapi.ListMessagesResponse, error)
	EditMessage(ctx context.Context, in *chatapi.EditMessageRequest, opts ...grpc.CallOption) (*chatapi.EditMessageResponse, error)
	MarkRead(ctx context.Context, in *chatapi.MarkReadRequest, opts ...grpc.CallOption) (*chatapi.MarkReadResponse, error)
	ListMembers(ctx context.Context, in *chatapi.ListMembersRequest, opts ...grpc.CallOption) (*chatapi.ListMembersResponse, error)
	AddMember(ctx context.Context, in *chatapi.AddMemberRequest, opts ...grpc.CallOption) (*chatapi.AddMemberResponse, error)
	LeaveRoom(ctx context.Context, in *chatapi.LeaveRoomRequest, opts ...grpc.CallOption) (*chatapi.LeaveRoomResponse, error)
	PresignUpload(ctx context.Context, in *chatapi.PresignUploadRequest, opts ...grpc.CallOption) (*chatapi.PresignUploadResponse, error)
	PresignDownload(ctx context.Context, in *chatapi.PresignDownloadRequest, opts ...grpc.CallOption) (*chatapi.PresignDownloadResponse, error)
}

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      chatRPC

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = access, refresh
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	accessToken, refreshToken := s.tokens()
	if accessToken == "" {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refreshToken == "" {
		return err
	}

	resp, err := s.client.RefreshToken(ctx, &chatapi.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

func (s *GRPCClient) timeoutInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpointURL lazily. timeout bounds every call,
// including a transparent token refresh; zero disables it.
func NewGRPCClient(endpointURL string, timeout time.Duration) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(s.timeoutInterceptor, s.accessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = chatapi.NewChatServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.InvalidArgument:
		return common.ErrValidation
	case codes.PermissionDenied:
		return common.ErrForbidden
	case codes.AlreadyExists:
		return common.ErrUsernameTaken
	case codes.FailedPrecondition:
		return common.ErrDanglingReply
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.Unauthenticated:
		if st.Message() == common.ErrInvalidCredentials.Error() {
			return common.ErrInvalidCredentials
		}
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &chatapi.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "ok" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, username, password string) error {
	_, err := s.client.Register(ctx, &chatapi.RegisterRequest{Username: username, Password: password})
	return s.mapError(err)
}

// Login authenticates and keeps the issued token pair for later calls.
func (s *GRPCClient) Login(ctx context.Context, username, password string) (*chatapi.LoginResponse, error) {
	resp, err := s.client.Login(ctx, &chatapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return resp, nil
}

func (s *GRPCClient) CreateRoom(ctx context.Context, name string, participants []string) (string, error) {
	resp, err := s.client.CreateRoom(ctx, &chatapi.CreateRoomRequest{Name: name, Participants: participants})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.RoomID, nil
}

func (s *GRPCClient) ListRooms(ctx context.Context) ([]chatapi.RoomSummary, error) {
	resp, err := s.client.ListRooms(ctx, &chatapi.ListRoomsRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Rooms, nil
}

func (s *GRPCClient) ListMembers(ctx context.Context, roomID string) ([]chatapi.Member, error) {
	resp, err := s.client.ListMembers(ctx, &chatapi.ListMembersRequest{RoomID: roomID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Members, nil
}

func (s *GRPCClient) AddMember(ctx context.Context, roomID, username string) (*chatapi.Member, error) {
	resp, err := s.client.AddMember(ctx, &chatapi.AddMemberRequest{RoomID: roomID, Username: username})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Member, nil
}

func (s *GRPCClient) LeaveRoom(ctx context.Context, roomID string) error {
	_, err := s.client.LeaveRoom(ctx, &chatapi.LeaveRoomRequest{RoomID: roomID})
	return s.mapError(err)
}

func (s *GRPCClient) MarkRead(ctx context.Context, roomID string) error {
	_, err := s.client.MarkRead(ctx, &chatapi.MarkReadRequest{RoomID: roomID})
	return s.mapError(err)
}

func (s *GRPCClient) SendMessage(ctx context.Context, req *chatapi.SendMessageRequest) (*chatapi.SendMessageResponse, error) {
	resp, err := s.client.SendMessage(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) ListMessages(ctx context.Context, roomID string, limit, offset int) ([]chatapi.Message, error) {
	resp, err := s.client.ListMessages(ctx, &chatapi.ListMessagesRequest{RoomID: roomID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Messages, nil
}

func (s *GRPCClient) EditMessage(ctx context.Context, roomID, messageID string, env chatapi.Envelope) (*chatapi.Message, error) {
	resp, err := s.client.EditMessage(ctx, &chatapi.EditMessageRequest{RoomID: roomID, MessageID: messageID, Envelope: env})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Message, nil
}

func (s *GRPCClient) PresignUpload(ctx context.Context, roomID string) (string, string, error) {
	resp, err := s.client.PresignUpload(ctx, &chatapi.PresignUploadRequest{RoomID: roomID})
	if err != nil {
		return "", "", s.mapError(err)
	}
	return resp.StorageKey, resp.URL, nil
}

func (s *GRPCClient) PresignDownload(ctx context.Context, roomID, key string) (string, error) {
	resp, err := s.client.PresignDownload(ctx, &chatapi.PresignDownloadRequest{RoomID: roomID, StorageKey: key})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.URL, nil
}
