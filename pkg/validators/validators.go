// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")

	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPasswordEmpty    = errors.New("no password provided")

	ErrNameEmpty  = errors.New("no full name provided")
	ErrPhoneEmpty = errors.New("no phone number provided")
)

// NormalizeEmail trims and lowercases e so lookups don't depend on how
// the user typed it
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	a, err := mail.ParseAddress(e)
	if err != nil || a.Address != e || !strings.Contains(e[strings.LastIndex(e, "@"):], ".") {
		return ErrEmailInvalid
	}

	return nil
}

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) < 6 {
		return ErrPasswordTooShort
	}

	if len(p) > 255 {
		return ErrPasswordTooLong
	}

	return nil
}

func NameValidator(n string) error {
	if strings.TrimSpace(n) == "" {
		return ErrNameEmpty
	}
	return nil
}

func PhoneValidator(p string) error {
	if strings.TrimSpace(p) == "" {
		return ErrPhoneEmpty
	}
	return nil
}
