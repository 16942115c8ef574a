package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/chatapi"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func caller(ctx context.Context) (models.Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok || id.UserID == "" {
		return models.Identity{}, status.Error(codes.Unauthenticated, "missing identity")
	}
	return id, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *chatapi.RegisterRequest) (*chatapi.RegisterResponse, error) {
	u, err := s.users.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.fail(ctx, "Register", err)
	}
	metrics.UsersRegistered.Inc()
	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return &chatapi.RegisterResponse{UserID: u.ID}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *chatapi.LoginRequest) (*chatapi.LoginResponse, error) {
	res, err := s.users.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.fail(ctx, "Login", err)
	}
	return &chatapi.LoginResponse{
		UserID:       res.User.ID,
		Username:     res.User.UserName,
		Salt:         res.User.Salt,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *chatapi.RefreshTokenRequest) (*chatapi.RefreshTokenResponse, error) {
	pair, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.fail(ctx, "RefreshToken", err)
	}
	return &chatapi.RefreshTokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *chatapi.PingRequest) (*chatapi.PingResponse, error) {
	return &chatapi.PingResponse{Status: "ok"}, nil
}

func (s *GRPCServer) CreateRoom(ctx context.Context, req *chatapi.CreateRoomRequest) (*chatapi.CreateRoomResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.CreateRoom(ctx, req.Name, id.UserID, req.Participants)
	if err != nil {
		return nil, s.fail(ctx, "CreateRoom", err)
	}
	metrics.RoomsCreated.Inc()
	return &chatapi.CreateRoomResponse{RoomID: room.ID}, nil
}

func (s *GRPCServer) ListRooms(ctx context.Context, req *chatapi.ListRoomsRequest) (*chatapi.ListRoomsResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := s.rooms.ListRooms(ctx, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "ListRooms", err)
	}
	out := make([]chatapi.RoomSummary, 0, len(summaries))
	for _, sm := range summaries {
		out = append(out, summaryToWire(sm))
	}
	return &chatapi.ListRoomsResponse{Rooms: out}, nil
}

func (s *GRPCServer) SendMessage(ctx context.Context, req *chatapi.SendMessageRequest) (*chatapi.SendMessageResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	env, err := envelopeFromWire(req.Envelope)
	if err != nil {
		return nil, err
	}
	kind := req.Kind
	if kind == "" {
		kind = common.DefaultMessageKind
	}
	msg, err := s.messages.Append(ctx, req.RoomID, id.UserID, env, kind, req.ReplyToID)
	if err != nil {
		return nil, s.fail(ctx, "SendMessage", err)
	}
	metrics.MessagesAppended.WithLabelValues(msg.Kind).Inc()
	return &chatapi.SendMessageResponse{MessageID: msg.ID, Seq: msg.Seq, CreatedAt: msg.CreatedAt}, nil
}

func (s *GRPCServer) ListMessages(ctx context.Context, req *chatapi.ListMessagesRequest) (*chatapi.ListMessagesResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.Read(ctx, req.RoomID, id.UserID, req.Limit, req.Offset)
	if err != nil {
		return nil, s.fail(ctx, "ListMessages", err)
	}
	out := make([]chatapi.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToWire(m))
	}
	return &chatapi.ListMessagesResponse{Messages: out}, nil
}

func (s *GRPCServer) EditMessage(ctx context.Context, req *chatapi.EditMessageRequest) (*chatapi.EditMessageResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	env, err := envelopeFromWire(req.Envelope)
	if err != nil {
		return nil, err
	}
	msg, err := s.messages.Edit(ctx, req.RoomID, id.UserID, req.MessageID, env)
	if err != nil {
		return nil, s.fail(ctx, "EditMessage", err)
	}
	return &chatapi.EditMessageResponse{Message: messageToWire(msg)}, nil
}

func (s *GRPCServer) MarkRead(ctx context.Context, req *chatapi.MarkReadRequest) (*chatapi.MarkReadResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	at, err := s.rooms.MarkRead(ctx, req.RoomID, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "MarkRead", err)
	}
	return &chatapi.MarkReadResponse{ReadAt: at}, nil
}

func (s *GRPCServer) ListMembers(ctx context.Context, req *chatapi.ListMembersRequest) (*chatapi.ListMembersResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.rooms.Members(ctx, req.RoomID, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "ListMembers", err)
	}
	out := make([]chatapi.Member, 0, len(members))
	for _, m := range members {
		out = append(out, memberToWire(m))
	}
	return &chatapi.ListMembersResponse{Members: out}, nil
}

func (s *GRPCServer) AddMember(ctx context.Context, req *chatapi.AddMemberRequest) (*chatapi.AddMemberResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.rooms.AddMember(ctx, req.RoomID, id.UserID, req.Username)
	if err != nil {
		return nil, s.fail(ctx, "AddMember", err)
	}
	return &chatapi.AddMemberResponse{Member: memberToWire(m)}, nil
}

func (s *GRPCServer) LeaveRoom(ctx context.Context, req *chatapi.LeaveRoomRequest) (*chatapi.LeaveRoomResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.Leave(ctx, req.RoomID, id.UserID); err != nil {
		return nil, s.fail(ctx, "LeaveRoom", err)
	}
	return &chatapi.LeaveRoomResponse{}, nil
}

func (s *GRPCServer) PresignUpload(ctx context.Context, req *chatapi.PresignUploadRequest) (*chatapi.PresignUploadResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	key, url, err := s.attachments.PresignUpload(ctx, req.RoomID, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "PresignUpload", err)
	}
	return &chatapi.PresignUploadResponse{StorageKey: key, URL: url}, nil
}

func (s *GRPCServer) PresignDownload(ctx context.Context, req *chatapi.PresignDownloadRequest) (*chatapi.PresignDownloadResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	url, err := s.attachments.PresignDownload(ctx, req.RoomID, id.UserID, req.StorageKey)
	if err != nil {
		return nil, s.fail(ctx, "PresignDownload", err)
	}
	return &chatapi.PresignDownloadResponse{URL: url}, nil
}
