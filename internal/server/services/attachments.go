package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	sc "github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultPresignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// AttachmentService hands out presigned object-storage URLs for encrypted
// file blobs. Objects are namespaced per room and only active members of
// that room can obtain URLs for them.
type AttachmentService struct {
	guard  *AccessGuard
	config *sc.Config
	logger logging.Logger
}

func NewAttachmentService(guard *AccessGuard, cfg *sc.Config, logger logging.Logger) *AttachmentService {
	return &AttachmentService{
		guard:  guard,
		config: cfg,
		logger: logger.With("module", "attachment_service"),
	}
}

func roomPrefix(roomID string) string {
	return "rooms/" + roomID + "/"
}

// NewStorageKey returns a fresh object key under the room's prefix.
func NewStorageKey(roomID string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("%s%d/%02d/%02d/%v", roomPrefix(roomID), d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *AttachmentService) expiry() time.Duration {
	if s.config.S3PresignExpiry > 0 {
		return s.config.S3PresignExpiry
	}
	return defaultPresignExpiry
}

func (s *AttachmentService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns a new storage key in the room and a PUT URL for it.
func (s *AttachmentService) PresignUpload(ctx context.Context, roomID, userID string) (string, string, error) {
	if err := s.guard.RequireActiveMember(ctx, roomID, userID); err != nil {
		return "", "", err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", common.Upstream(err)
	}

	bucket := s.config.S3Bucket
	key := NewStorageKey(roomID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.expiry()))
	if err != nil {
		return "", "", common.Upstream(err)
	}

	s.logger.Debug(ctx, "upload presigned", "room_id", roomID, "key", key)
	return key, req.URL, nil
}

// PresignDownload returns a GET URL for key, which must belong to the room.
func (s *AttachmentService) PresignDownload(ctx context.Context, roomID, userID, key string) (string, error) {
	if err := s.guard.RequireActiveMember(ctx, roomID, userID); err != nil {
		return "", err
	}
	if !strings.HasPrefix(key, roomPrefix(roomID)) || strings.Contains(key, "..") {
		return "", common.ErrForbidden
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", common.Upstream(err)
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.expiry()))
	if err != nil {
		return "", common.Upstream(err)
	}

	return req.URL, nil
}
