package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/waypoint/internal/types"
)

// Auth errors are mapped in the auth package interceptor.
// Configuration errors map to INVALID_ARGUMENT.
// Expression and recovery failures map to FAILED_PRECONDITION.
// Unknown pages map to NOT_FOUND.
// Context timeouts map to DEADLINE_EXCEEDED.
// Everything else (sessions, database) maps to UNAVAILABLE.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, types.ErrConfiguration):
		code = codes.InvalidArgument
	case errors.Is(err, types.ErrExpression), errors.Is(err, types.ErrRecoveryFailure):
		code = codes.FailedPrecondition
	case errors.Is(err, types.ErrPageNotFound):
		code = codes.NotFound
	default:
		code = codes.Unavailable
	}
	return status.Error(code, err.Error())
}
