// Package errors carries the named error kinds of the swipe engine and
// maps them onto gRPC and HTTP status codes.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Profile errors
	CodeUserNotFound Code = "USER_NOT_FOUND"

	// Quota errors
	CodeSwipeLimitReached     Code = "SWIPE_LIMIT_REACHED"
	CodeSuperlikeLimitReached Code = "SUPERLIKE_LIMIT_REACHED"
	CodeSuperlikePremiumOnly  Code = "SUPERLIKE_PREMIUM_ONLY"
	CodeBoostPremiumOnly      Code = "BOOST_PREMIUM_ONLY"

	// Match errors
	CodeNotMatched Code = "NOT_MATCHED"

	// Request errors
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidArgument:
		return codes.InvalidArgument
	case CodeUserNotFound:
		return codes.NotFound
	case CodeSwipeLimitReached, CodeSuperlikeLimitReached:
		return codes.ResourceExhausted
	case CodeSuperlikePremiumOnly, CodeBoostPremiumOnly, CodePermissionDenied:
		return codes.PermissionDenied
	case CodeNotMatched:
		return codes.FailedPrecondition
	case CodeUnauthenticated:
		return codes.Unauthenticated
	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes for the JSON gateway.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUserNotFound:
		return http.StatusNotFound
	case CodeSwipeLimitReached, CodeSuperlikeLimitReached:
		return http.StatusTooManyRequests
	case CodeSuperlikePremiumOnly, CodeBoostPremiumOnly, CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotMatched:
		return http.StatusConflict
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// IsRejection reports whether the code is an expected business-rule denial
// rather than a failure.
func (c Code) IsRejection() bool {
	switch c {
	case CodeSwipeLimitReached, CodeSuperlikeLimitReached,
		CodeSuperlikePremiumOnly, CodeBoostPremiumOnly, CodeNotMatched:
		return true
	}
	return false
}
