package common

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller. Every Kind is reported to clients
// as an error envelope; the Kind only decides the public message and logging.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindNotFound
	KindConflict
	KindChallenge
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindChallenge:
		return "challenge"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Error is a classified error with a message that is safe to show to users.
// Err, when set, holds the underlying cause and is never exposed.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by kind and message so that sentinels below
// can be compared with errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// E builds a classified error.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a classified error that keeps cause for logging.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Validationf is a shorthand for formatted validation errors.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the message that may be shown to a caller.
// Unclassified errors never leak their text.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ErrorInternal.Msg
}

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	ErrorInternal = E(KindInternal, "internal error")

	// Authentication / authorization.
	ErrInvalidToken       = E(KindAuthentication, "invalid or expired token")
	ErrInvalidCredentials = E(KindAuthentication, "invalid username or password")
	ErrWrongPassword      = E(KindAuthentication, "wrong password")
	ErrUserNotFound       = E(KindAuthorization, "user not found")
	ErrEmailNotVerified   = E(KindAuthorization, "email address needs to be verified first")

	// Records.
	ErrRecordNotFound   = E(KindNotFound, "not found")
	ErrNoFieldsToUpdate = E(KindValidation, "no fields to update")

	// Registration.
	ErrUsernameTaken = E(KindConflict, "username already exists")
	ErrEmailTaken    = E(KindConflict, "email already exists")

	// One-time code challenge.
	ErrInvalidCode     = E(KindChallenge, "invalid code")
	ErrTooManyAttempts = E(KindChallenge, "too many failed attempts")
	ErrCodeExpired     = E(KindChallenge, "code expired")
)
