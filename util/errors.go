package util

import (
	"errors"
	"net/http"
)

// Sentinel error kinds for business-rule violations. Handlers wrap these
// with fmt.Errorf("...: %w", Err...) and the response helpers map the kind
// to an HTTP status, so the taxonomy travels as a tagged error value rather
// than an exception hierarchy.
var (
	ErrInvalidRequestParameters = errors.New("invalid request parameters")
	ErrIdentityValidationFailed = errors.New("identity validation failed")

	ErrIncorrectCredentials    = errors.New("incorrect credentials")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrTokenMissing            = errors.New("token is missing")
	ErrTokenInvalid            = errors.New("token is invalid")
	ErrTokenExpired            = errors.New("token has expired")
	ErrTokenRevoked            = errors.New("token has been revoked")

	ErrUserNotFound        = errors.New("user not found")
	ErrAssociationNotFound = errors.New("association not found")
	ErrRecordNotFound      = errors.New("record not found")
	ErrImageNotFound       = errors.New("image not found")

	ErrDuplicateIdentity = errors.New("username or email already registered")
	ErrDuplicateReport   = errors.New("a report already exists for that appointment date")
	ErrAssociationExists = errors.New("association already exists")

	ErrTooManyRequests = errors.New("rate limit exceeded")

	ErrInternalServer = errors.New("internal server error")
)

// StatusFor maps an error kind to its HTTP status. Unknown errors are
// treated as server faults so storage failures never leak a misleading
// client-side status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequestParameters),
		errors.Is(err, ErrIdentityValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrIncorrectCredentials),
		errors.Is(err, ErrInvalidVerificationCode),
		errors.Is(err, ErrTokenMissing),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrAssociationNotFound),
		errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateIdentity),
		errors.Is(err, ErrDuplicateReport),
		errors.Is(err, ErrAssociationExists):
		return http.StatusConflict
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
