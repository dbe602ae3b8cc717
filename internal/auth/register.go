package auth

import (
	"context"
	"errors"

	"carlyn/auth-api/internal/ledger"
	"carlyn/auth-api/internal/model"
	"carlyn/auth-api/internal/users"
	"carlyn/auth-api/pkg/validators"

	"go.uber.org/zap"
)

type RegisterInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
}

// Register stages a new account behind a verification code and mails the
// code. The account only exists once VerifyEmail succeeds.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	in.Email = validators.NormalizeEmail(in.Email)

	for _, err := range []error{
		validators.NameValidator(in.FullName),
		validators.EmailValidator(in.Email),
		validators.PhoneValidator(in.Phone),
		validators.PasswordValidator(in.Password),
	} {
		if err != nil {
			return fail(KindInvalid, err.Error())
		}
	}

	_, err := s.Users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		// Same answer whether or not the address is taken by someone else
		return errRegistration
	case !errors.Is(err, users.ErrNotFound):
		return internal(err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return internal(err)
	}

	rec, err := s.Ledger.CreatePending(ctx, in.Email, model.PurposeRegistration, ledger.Payload{
		FullName:     in.FullName,
		Phone:        in.Phone,
		PasswordHash: hash,
	}, true)
	if err != nil {
		return internal(err)
	}

	if _, err := s.Ledger.SweepExpired(ctx, SweepCeiling); err != nil {
		zap.L().Warn("Failed to sweep pending verifications", zap.Error(err))
	}

	dispatched("verification", in.Email, s.Mail.SendVerification(ctx, in.Email, in.FullName, rec.Code))
	return nil
}

// VerifyEmail turns a pending registration into a permanent user when code
// matches and the registration is younger than RegistrationWindow
func (s *Service) VerifyEmail(ctx context.Context, email string, code int) (*model.User, error) {
	email = validators.NormalizeEmail(email)

	rec, err := s.Ledger.FindActive(ctx, email, model.PurposeRegistration)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, errNoRegistration
		}
		return nil, internal(err)
	}

	if ledger.Expired(rec, RegistrationWindow, s.now()) {
		s.discard(ctx, rec)
		return nil, fail(KindExpired, "The verification code has expired")
	}

	// A wrong code keeps the record so the user can try again
	if code != rec.Code {
		return nil, errWrongCode
	}

	_, err = s.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.discard(ctx, rec)
		return nil, fail(KindConflict, "This email is already registered")
	case !errors.Is(err, users.ErrNotFound):
		return nil, internal(err)
	}

	u, err := s.Users.Create(ctx, users.Profile{
		FullName:     rec.FullName,
		Email:        rec.Email,
		Phone:        rec.Phone,
		PasswordHash: rec.PasswordHash,
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			s.discard(ctx, rec)
			return nil, fail(KindConflict, "This email is already registered")
		}
		return nil, internal(err)
	}

	s.discard(ctx, rec)

	zap.L().Info("User registered", zap.String("userID", u.ID))
	return u, nil
}

// ResendCode mails a fresh code for a pending registration
func (s *Service) ResendCode(ctx context.Context, email string) error {
	email = validators.NormalizeEmail(email)
	if err := validators.EmailValidator(email); err != nil {
		return fail(KindInvalid, err.Error())
	}

	if err := s.allowResend(ctx, email); err != nil {
		return err
	}

	rec, err := s.Ledger.FindActive(ctx, email, model.PurposeRegistration)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return errNoRegistration
		}
		return internal(err)
	}

	rec, err = s.Ledger.RefreshCode(ctx, rec.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return errNoRegistration
		}
		return internal(err)
	}

	dispatched("verification", email, s.Mail.SendVerification(ctx, email, rec.FullName, rec.Code))
	return nil
}
