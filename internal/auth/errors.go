package auth

import (
	"errors"
	"fmt"
)

// Kind classifies a failed auth operation
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindConflict
	KindNotFound
	KindExpired
	KindInvalidCode
	KindRateLimited
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindInvalidCode:
		return "invalid_code"
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is the outcome of every failed operation. Message is safe to show
// to the user, Err is the internal cause and is only logged.
type Error struct {
	Kind    Kind
	Message string

	// RetryAfter is set for KindRateLimited, in seconds
	RetryAfter int

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindInternal for anything that isn't an
// *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func fail(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

const msgBadCredentials = "Invalid credentials"

var (
	errRegistration   = fail(KindConflict, "Unable to register with this email")
	errNoRegistration = fail(KindNotFound, "There's no registration pending verification")
	errNoRecovery     = fail(KindNotFound, "There's no active password recovery request")
	errWrongCode      = fail(KindInvalidCode, "Incorrect code")
)
