package chatapi

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "gophchat.ChatService"

// FullMethod returns the gRPC method path for a ChatService method name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// PublicMethods can be called without an access token.
var PublicMethods = map[string]struct{}{
	FullMethod("Register"):     {},
	FullMethod("Login"):        {},
	FullMethod("RefreshToken"): {},
	FullMethod("Ping"):         {},
}

type ChatServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	CreateRoom(context.Context, *CreateRoomRequest) (*CreateRoomResponse, error)
	ListRooms(context.Context, *ListRoomsRequest) (*ListRoomsResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	EditMessage(context.Context, *EditMessageRequest) (*EditMessageResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	ListMembers(context.Context, *ListMembersRequest) (*ListMembersResponse, error)
	AddMember(context.Context, *AddMemberRequest) (*AddMemberResponse, error)
	LeaveRoom(context.Context, *LeaveRoomRequest) (*LeaveRoomResponse, error)
	PresignUpload(context.Context, *PresignUploadRequest) (*PresignUploadResponse, error)
	PresignDownload(context.Context, *PresignDownloadRequest) (*PresignDownloadResponse, error)
}

func unary[Req, Resp any](name string, call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatServiceServer), ctx, req.(*Req))
			})
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", ChatServiceServer.Register),
		unary("Login", ChatServiceServer.Login),
		unary("RefreshToken", ChatServiceServer.RefreshToken),
		unary("Ping", ChatServiceServer.Ping),
		unary("CreateRoom", ChatServiceServer.CreateRoom),
		unary("ListRooms", ChatServiceServer.ListRooms),
		unary("SendMessage", ChatServiceServer.SendMessage),
		unary("ListMessages", ChatServiceServer.ListMessages),
		unary("EditMessage", ChatServiceServer.EditMessage),
		unary("MarkRead", ChatServiceServer.MarkRead),
		unary("ListMembers", ChatServiceServer.ListMembers),
		unary("AddMember", ChatServiceServer.AddMember),
		unary("LeaveRoom", ChatServiceServer.LeaveRoom),
		unary("PresignUpload", ChatServiceServer.PresignUpload),
		unary("PresignDownload", ChatServiceServer.PresignDownload),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chatapi",
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
