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

// ForgotPassword starts a password recovery for an existing account
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = validators.NormalizeEmail(email)
	if err := validators.EmailValidator(email); err != nil {
		return fail(KindInvalid, err.Error())
	}

	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return fail(KindNotFound, "There's no account with that email")
		}
		return internal(err)
	}

	rec, err := s.Ledger.CreatePending(ctx, email, model.PurposeRecovery, ledger.Payload{
		FullName: u.FullName,
		UserID:   &u.ID,
	}, true)
	if err != nil {
		return internal(err)
	}

	dispatched("recovery", email, s.Mail.SendRecovery(ctx, email, u.FullName, rec.Code))
	return nil
}

func (s *Service) findRecovery(ctx context.Context, email string) (*model.PendingVerification, error) {
	rec, err := s.Ledger.FindActive(ctx, email, model.PurposeRecovery)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, errNoRecovery
		}
		return nil, internal(err)
	}
	return rec, nil
}

// VerifyRecoveryCode confirms the recovery code so ResetPassword can run
func (s *Service) VerifyRecoveryCode(ctx context.Context, email string, code int) error {
	email = validators.NormalizeEmail(email)

	rec, err := s.findRecovery(ctx, email)
	if err != nil {
		return err
	}

	if ledger.Expired(rec, RecoveryWindow, s.now()) {
		s.discard(ctx, rec)
		return fail(KindExpired, "The recovery code has expired")
	}

	if code != rec.Code {
		return errWrongCode
	}

	if err := s.Ledger.MarkConfirmed(ctx, rec.ID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return errNoRecovery
		}
		return internal(err)
	}

	return nil
}

// ResetPassword sets a new password once the recovery code is confirmed.
// The window is measured from when the code was issued, not from when it
// was confirmed.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = validators.NormalizeEmail(email)
	if err := validators.PasswordValidator(newPassword); err != nil {
		return fail(KindInvalid, err.Error())
	}

	rec, err := s.findRecovery(ctx, email)
	if err != nil {
		return err
	}

	if !rec.Confirmed {
		return fail(KindConflict, "The recovery code hasn't been verified")
	}

	if ledger.Expired(rec, RecoveryWindow, s.now()) {
		s.discard(ctx, rec)
		return fail(KindExpired, "The recovery session has expired")
	}

	if rec.UserID == nil {
		return internal(errors.New("recovery record has no user"))
	}

	u, err := s.Users.FindByID(ctx, *rec.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.discard(ctx, rec)
			return fail(KindNotFound, "User not found")
		}
		return internal(err)
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return internal(err)
	}

	// Claim the record before touching the password so two concurrent
	// resets can't both go through
	if err := s.Ledger.ConsumeAndDelete(ctx, rec.ID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return errNoRecovery
		}
		return internal(err)
	}

	if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return internal(err)
	}

	zap.L().Info("Password reset", zap.String("userID", u.ID))

	dispatched("password_changed", email, s.Mail.SendPasswordChanged(ctx, email, u.FullName))
	return nil
}

// ResendRecoveryCode mails a fresh recovery code. The new code has to be
// verified again before a reset.
func (s *Service) ResendRecoveryCode(ctx context.Context, email string) error {
	email = validators.NormalizeEmail(email)
	if err := validators.EmailValidator(email); err != nil {
		return fail(KindInvalid, err.Error())
	}

	if err := s.allowResend(ctx, email); err != nil {
		return err
	}

	rec, err := s.findRecovery(ctx, email)
	if err != nil {
		return err
	}

	rec, err = s.Ledger.RefreshCode(ctx, rec.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return errNoRecovery
		}
		return internal(err)
	}

	dispatched("recovery", email, s.Mail.SendRecovery(ctx, email, rec.FullName, rec.Code))
	return nil
}
