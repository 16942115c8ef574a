package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/chatapi"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type RoomService interface {
	CreateRoom(ctx context.Context, name, creatorID string, memberUsernames []string) (*models.Room, error)
	ListRooms(ctx context.Context, userID string) ([]*models.RoomSummary, error)
	MarkRead(ctx context.Context, roomID, userID string) (time.Time, error)
	Members(ctx context.Context, roomID, userID string) ([]*models.Member, error)
	AddMember(ctx context.Context, roomID, actorID, username string) (*models.Member, error)
	Leave(ctx context.Context, roomID, userID string) error
}

type MessageService interface {
	Append(ctx context.Context, roomID, senderID string, env models.Envelope, kind string, replyTo *string) (*models.Message, error)
	Read(ctx context.Context, roomID, requesterID string, limit, offset int) ([]*models.Message, error)
	Edit(ctx context.Context, roomID, senderID, messageID string, env models.Envelope) (*models.Message, error)
}

type AttachmentService interface {
	PresignUpload(ctx context.Context, roomID, userID string) (string, string, error)
	PresignDownload(ctx context.Context, roomID, userID, key string) (string, error)
}

// Services bundles the core the transport dispatches to.
type Services struct {
	Users       UserService
	Rooms       RoomService
	Messages    MessageService
	Attachments AttachmentService
}

type GRPCServer struct {
	address     string
	users       UserService
	rooms       RoomService
	messages    MessageService
	attachments AttachmentService
	logger      logging.Logger
	jwtSecret   []byte
}

var _ chatapi.ChatServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, svc Services, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		users:       svc.Users,
		rooms:       svc.Rooms,
		messages:    svc.Messages,
		attachments: svc.Attachments,
		jwtSecret:   []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(metricsInterceptor, s.accessTokenInterceptor))
	chatapi.RegisterChatServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
