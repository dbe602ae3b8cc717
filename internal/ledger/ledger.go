// Package ledger stores pending verifications: one active record per
// (email, purpose) holding the code a user has to type back to finish
// registering or to reset a password.
//
// The ledger never decides whether a record is expired. Callers compare
// CreatedAt against their own window with Expired.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carlyn/auth-api/internal/model"
	"carlyn/auth-api/pkg/security"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("no pending verification")
	ErrConflict = errors.New("pending verification already exists")
)

// Payload is the data staged alongside a code
type Payload struct {
	FullName     string
	Phone        string
	PasswordHash string
	UserID       *string
}

type Ledger struct {
	DB *gorm.DB

	Now     func() time.Time
	NewCode func() (int, error)
	NewID   func() string
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{
		DB:      db,
		Now:     func() time.Time { return time.Now().UTC() },
		NewCode: security.NewCode,
		NewID:   uuid.NewString,
	}
}

// Expired reports whether rec is older than window. A record is only valid
// while now - CreatedAt < window, so exactly window old is expired.
func Expired(rec *model.PendingVerification, window time.Duration, now time.Time) bool {
	return now.Sub(rec.CreatedAt) >= window
}

// CreatePending stores a new pending verification with a fresh code. When
// replace is set any existing record for (email, purpose) is evicted in the
// same transaction, otherwise an existing record fails with ErrConflict.
func (l *Ledger) CreatePending(ctx context.Context, email string, purpose model.Purpose, p Payload, replace bool) (*model.PendingVerification, error) {
	code, err := l.NewCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code, %w", err)
	}

	rec := &model.PendingVerification{
		ID:           l.NewID(),
		Email:        email,
		Purpose:      purpose,
		Code:         code,
		FullName:     p.FullName,
		Phone:        p.Phone,
		PasswordHash: p.PasswordHash,
		UserID:       p.UserID,
		CreatedAt:    l.Now(),
	}

	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replace {
			if err := tx.
				Where("email = ? AND purpose = ?", email, purpose).
				Delete(&model.PendingVerification{}).
				Error; err != nil {
				return err
			}
		} else {
			var n int64
			if err := tx.
				Model(&model.PendingVerification{}).
				Where("email = ? AND purpose = ?", email, purpose).
				Count(&n).
				Error; err != nil {
				return err
			}

			if n > 0 {
				return ErrConflict
			}
		}

		if err := tx.Create(rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return err
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create pending verification, %w", err)
	}

	zap.L().Debug("Pending verification created",
		zap.String("email", email),
		zap.String("purpose", string(purpose)),
		zap.Int("code", code))

	return rec, nil
}

// FindActive returns the record for (email, purpose) whatever its age
func (l *Ledger) FindActive(ctx context.Context, email string, purpose model.Purpose) (*model.PendingVerification, error) {
	var rec model.PendingVerification

	err := l.DB.WithContext(ctx).
		Where("email = ? AND purpose = ?", email, purpose).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find pending verification, %w", err)
	}

	return &rec, nil
}

func (l *Ledger) MarkConfirmed(ctx context.Context, id string) error {
	r := l.DB.WithContext(ctx).
		Model(&model.PendingVerification{}).
		Where("id = ?", id).
		Update("confirmed", true)
	if r.Error != nil {
		return fmt.Errorf("failed to confirm pending verification, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ConsumeAndDelete removes a record after its terminal use. Only one caller
// can consume a given record, the others get ErrNotFound.
func (l *Ledger) ConsumeAndDelete(ctx context.Context, id string) error {
	r := l.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.PendingVerification{})
	if r.Error != nil {
		return fmt.Errorf("failed to delete pending verification, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// RefreshCode issues a new code and restarts the record's clock. Recovery
// records lose their confirmation since the new code hasn't been verified.
func (l *Ledger) RefreshCode(ctx context.Context, id string) (*model.PendingVerification, error) {
	code, err := l.NewCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code, %w", err)
	}

	var rec model.PendingVerification

	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
			return err
		}

		rec.Code = code
		rec.CreatedAt = l.Now()

		updates := map[string]any{
			"code":       rec.Code,
			"created_at": rec.CreatedAt,
		}

		if rec.Purpose == model.PurposeRecovery {
			rec.Confirmed = false
			updates["confirmed"] = false
		}

		return tx.Model(&model.PendingVerification{}).
			Where("id = ?", id).
			Updates(updates).
			Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to refresh code, %w", err)
	}

	zap.L().Debug("Pending verification refreshed",
		zap.String("email", rec.Email),
		zap.String("purpose", string(rec.Purpose)),
		zap.Int("code", code))

	return &rec, nil
}

// SweepExpired deletes every record older than ceiling, whatever its purpose
func (l *Ledger) SweepExpired(ctx context.Context, ceiling time.Duration) (int64, error) {
	r := l.DB.WithContext(ctx).
		Where("created_at < ?", l.Now().Add(-ceiling)).
		Delete(&model.PendingVerification{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to sweep pending verifications, %w", r.Error)
	}

	if r.RowsAffected > 0 {
		zap.L().Debug("Swept stale pending verifications", zap.Int64("count", r.RowsAffected))
	}

	return r.RowsAffected, nil
}
