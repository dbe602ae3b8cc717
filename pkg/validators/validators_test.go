package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailValidator(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"a@x.com", nil},
		{"", ErrEmailEmpty},
		{"a@x", ErrEmailInvalid},
		{"not-an-email", ErrEmailInvalid},
		{"Ana <a@x.com>", ErrEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EmailValidator(tt.in))
		})
	}
}

func TestPasswordValidator(t *testing.T) {
	assert.Equal(t, ErrPasswordEmpty, PasswordValidator(""))
	assert.Equal(t, ErrPasswordTooShort, PasswordValidator("12345"))
	assert.NoError(t, PasswordValidator("123456"))
	assert.Equal(t, ErrPasswordTooLong, PasswordValidator(strings.Repeat("a", 256)))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, ErrNameEmpty, NameValidator("  "))
	assert.NoError(t, NameValidator("Ana"))
	assert.Equal(t, ErrPhoneEmpty, PhoneValidator(""))
	assert.NoError(t, PhoneValidator("555-0100"))
}
