// Package auth sequences the registration, login and password recovery
// flows on top of the verification ledger, the abuse throttle and the user
// store.
//
// Every operation returns nil or an *Error whose Kind tells the transport
// layer how to answer. Storage failures come back as KindInternal with the
// cause attached for logging only.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carlyn/auth-api/internal/ledger"
	"carlyn/auth-api/internal/model"
	"carlyn/auth-api/internal/throttle"
	"carlyn/auth-api/internal/users"
	"carlyn/auth-api/pkg/security"

	"go.uber.org/zap"
)

const (
	RegistrationWindow = 4 * time.Minute
	RecoveryWindow     = 10 * time.Minute

	// SweepCeiling is how old any pending verification may get before the
	// janitor pass on registration removes it
	SweepCeiling = 10 * time.Minute
)

type Ledger interface {
	CreatePending(ctx context.Context, email string, purpose model.Purpose, p ledger.Payload, replace bool) (*model.PendingVerification, error)
	FindActive(ctx context.Context, email string, purpose model.Purpose) (*model.PendingVerification, error)
	MarkConfirmed(ctx context.Context, id string) error
	ConsumeAndDelete(ctx context.Context, id string) error
	RefreshCode(ctx context.Context, id string) (*model.PendingVerification, error)
	SweepExpired(ctx context.Context, ceiling time.Duration) (int64, error)
}

type Users interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	Create(ctx context.Context, p users.Profile) (*model.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

type Hasher interface {
	Hash(p string) (string, error)
	Compare(p, hash string) (bool, error)
}

type Throttle interface {
	CheckLogin(ctx context.Context, id string) error
	RecordLoginFailure(ctx context.Context, id string) error
	ClearLogin(ctx context.Context, id string) error
	AllowResend(ctx context.Context, id string) error
}

type Mailer interface {
	SendVerification(ctx context.Context, email, name string, code int) error
	SendRecovery(ctx context.Context, email, name string, code int) error
	SendPasswordChanged(ctx context.Context, email, name string) error
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*security.GoogleIdentity, error)
}

type Service struct {
	Ledger   Ledger
	Users    Users
	Hasher   Hasher
	Throttle Throttle
	Mail     Mailer
	Tokens   TokenIssuer
	Google   IdentityVerifier

	Now func() time.Time
}

// Session is handed out after a successful login
type Session struct {
	Token string
	User  *model.User
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// limited turns a throttle rejection into KindRateLimited
func limited(err error, lockedMsg, cooldownMsg string) *Error {
	var le *throttle.LimitError
	if !errors.As(err, &le) {
		return internal(err)
	}

	msg := cooldownMsg
	if le.Locked {
		msg = lockedMsg
	}

	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf(msg, le.Seconds()),
		RetryAfter: le.Seconds(),
	}
}

func (s *Service) allowResend(ctx context.Context, email string) error {
	if err := s.Throttle.AllowResend(ctx, email); err != nil {
		return limited(err,
			"Too many resend requests. Wait %d seconds before trying again",
			"You must wait %d seconds before requesting another code")
	}
	return nil
}

// dispatched logs a failed email. The ledger change it follows stays
// committed, the user can ask for a resend.
func dispatched(kind, email string, err error) {
	if err != nil {
		zap.L().Error("Failed to send email",
			zap.String("kind", kind),
			zap.String("email", email),
			zap.Error(err))
	}
}

// discard deletes a pending record that can no longer be used
func (s *Service) discard(ctx context.Context, rec *model.PendingVerification) {
	err := s.Ledger.ConsumeAndDelete(ctx, rec.ID)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		zap.L().Error("Failed to delete pending verification",
			zap.String("id", rec.ID),
			zap.String("purpose", string(rec.Purpose)),
			zap.Error(err))
	}
}

func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, fail(KindNotFound, "User not found")
		}
		return nil, internal(err)
	}

	return u, nil
}
