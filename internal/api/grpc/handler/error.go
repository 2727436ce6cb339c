package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/sessionguard/internal/model"
)

const msgInvalidToken = "invalid or expired token"

type errorMapping struct {
	err  error
	code codes.Code
	msg  string
}

// errorTable is matched top to bottom with errors.Is.
var errorTable = []errorMapping{
	{err: model.ErrInvalidToken, code: codes.Unauthenticated, msg: msgInvalidToken},
	{err: model.ErrExpiredToken, code: codes.Unauthenticated, msg: msgInvalidToken},
	{err: model.ErrTokenNotFound, code: codes.Unauthenticated, msg: msgInvalidToken},
	{err: model.ErrMissingClaim, code: codes.Unauthenticated, msg: msgInvalidToken},
	{err: model.ErrAuthenticationFailed, code: codes.Unauthenticated, msg: "invalid credentials"},
	{err: model.ErrUserInactive, code: codes.PermissionDenied, msg: "account is disabled"},
	{err: model.ErrUserNotVerified, code: codes.FailedPrecondition, msg: "email is not verified"},
	{err: model.ErrRateLimitExceeded, code: codes.ResourceExhausted, msg: "too many attempts, try again later"},
	{err: model.ErrDuplicateEmail, code: codes.AlreadyExists, msg: "email is already registered"},
}

// ToStatus converts a service error to a gRPC status error. Errors outside
// the table, infrastructure failures included, become Internal.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return status.Error(m.code, m.msg)
		}
	}
	return status.Error(codes.Internal, "internal server error")
}

// RefreshStatus is ToStatus for token refresh, where a principal that was
// disabled or lost verification reads as an invalid token.
func RefreshStatus(err error) error {
	if errors.Is(err, model.ErrUserInactive) || errors.Is(err, model.ErrUserNotVerified) {
		return status.Error(codes.Unauthenticated, msgInvalidToken)
	}
	return ToStatus(err)
}
