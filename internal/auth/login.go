package auth

import (
	"context"
	"errors"

	"carlyn/auth-api/internal/model"
	"carlyn/auth-api/internal/users"
	"carlyn/auth-api/pkg/util"
	"carlyn/auth-api/pkg/validators"

	"go.uber.org/zap"
)

// Login checks email and password. Three failures in a row lock the email
// out for two minutes. Unknown emails and wrong passwords get the same
// answer.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = validators.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fail(KindInvalid, "Email and password are required")
	}

	if err := s.Throttle.CheckLogin(ctx, email); err != nil {
		return nil, limited(err,
			"Too many failed attempts. Try again in %d seconds",
			"Too many failed attempts. Try again in %d seconds")
	}

	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			return nil, internal(err)
		}
		return nil, s.badCredentials(ctx, email)
	}

	ok, err := s.Hasher.Compare(password, u.PasswordHash)
	if err != nil {
		return nil, internal(err)
	}

	if !ok {
		return nil, s.badCredentials(ctx, email)
	}

	if err := s.Throttle.ClearLogin(ctx, email); err != nil {
		zap.L().Warn("Failed to clear login attempts", zap.String("email", email), zap.Error(err))
	}

	return s.session(u)
}

func (s *Service) badCredentials(ctx context.Context, email string) error {
	if err := s.Throttle.RecordLoginFailure(ctx, email); err != nil {
		return internal(err)
	}
	return fail(KindUnauthorized, msgBadCredentials)
}

// GoogleLogin signs in with a Google ID token, creating the account on
// first use
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	id, err := s.Google.Verify(ctx, idToken)
	if err != nil {
		zap.L().Debug("Rejected Google token", zap.Error(err))
		return nil, fail(KindInvalid, "Invalid Google token")
	}

	email := validators.NormalizeEmail(id.Email)

	u, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		u, err = s.createGoogleUser(ctx, email, id.Name)
	}
	if err != nil {
		return nil, internal(err)
	}

	if err := s.Throttle.ClearLogin(ctx, email); err != nil {
		zap.L().Warn("Failed to clear login attempts", zap.String("email", email), zap.Error(err))
	}

	return s.session(u)
}

func (s *Service) createGoogleUser(ctx context.Context, email, name string) (*model.User, error) {
	if name == "" {
		name = "User"
	}

	// Google accounts get an unguessable password. Password recovery is how
	// such a user sets one they know.
	secret, err := util.GenerateToken(32)
	if err != nil {
		return nil, err
	}

	hash, err := s.Hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	u, err := s.Users.Create(ctx, users.Profile{
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
	})
	if errors.Is(err, users.ErrDuplicate) {
		return s.Users.FindByEmail(ctx, email)
	}

	return u, err
}

func (s *Service) session(u *model.User) (*Session, error) {
	token, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, internal(err)
	}

	return &Session{Token: token, User: u}, nil
}
