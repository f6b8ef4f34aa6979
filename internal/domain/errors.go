package domain

import (
	"errors"
	"fmt"
)

// Expected business failures are returned as sentinel errors and mapped to
// HTTP status codes at the handler boundary. Anything not in this list is
// treated as an internal error and never shown to the client verbatim.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
	ErrAlreadyExists      = errors.New("user with this email already exists")
	ErrSlugTaken          = errors.New("slug already in use")
	ErrLastAdmin          = errors.New("cannot delete the last admin account")
	ErrNotConfigured      = errors.New("profile not configured")
	ErrStaleResetToken    = errors.New("reset token has been superseded")
	ErrWrongTokenType     = errors.New("token is not a reset token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// LockedError carries how long the caller must wait before retrying.
type LockedError struct {
	Remaining int // minutes
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.Remaining)
}

// ValidationError marks malformed or missing input rejected before business
// logic runs.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
