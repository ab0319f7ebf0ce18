package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is a domain error with a code and optional metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match on the code alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code && t.Message == ""
	}
	return false
}

// New creates a domain error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// WithMetadata returns a copy of e with the key set.
func (e *Error) WithMetadata(key, value string) *Error {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	return &Error{Code: e.Code, Message: e.Message, Metadata: md}
}

// Sentinels for errors.Is comparisons.
var (
	ErrUserNotFound          = &Error{Code: CodeUserNotFound}
	ErrSwipeLimitReached     = &Error{Code: CodeSwipeLimitReached}
	ErrSuperlikeLimitReached = &Error{Code: CodeSuperlikeLimitReached}
	ErrSuperlikePremiumOnly  = &Error{Code: CodeSuperlikePremiumOnly}
	ErrBoostPremiumOnly      = &Error{Code: CodeBoostPremiumOnly}
	ErrNotMatched            = &Error{Code: CodeNotMatched}
)

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// Map converts domain/infra errors into gRPC status errors.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var appErr *Error
	switch {
	case errors.As(err, &appErr):
		return status.Error(appErr.Code.GRPCCode(), appErr.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code.HTTPStatus()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// InvalidArgument creates an InvalidArgument domain error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return New(CodeInvalidArgument, msg)
}

// PermissionDenied creates a PermissionDenied domain error.
func PermissionDenied(msg string) error {
	return New(CodePermissionDenied, msg)
}
