package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a core error onto a status whose message names only the
// failure category.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, "invalid argument")
	case errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, common.ErrUsernameTaken):
		return status.Error(codes.AlreadyExists, "username already taken")
	case errors.Is(err, common.ErrDanglingReply):
		return status.Error(codes.FailedPrecondition, "reply target not found")
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, "refresh token expired")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrUpstreamUnavailable):
		return status.Error(codes.Unavailable, "upstream unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// fail logs server-side faults with their cause and returns the mapped status.
func (s *GRPCServer) fail(ctx context.Context, method string, err error) error {
	st := toStatus(err)
	switch status.Code(st) {
	case codes.Internal, codes.Unavailable:
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
	default:
		s.logger.Debug(ctx, "request rejected", "method", method, "error", err)
	}
	return st
}
