package model

import "time"

// Purpose is the workflow a pending verification belongs to
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeRecovery     Purpose = "recovery"
)

// PendingVerification gates either account creation or a password reset
// behind a one-time numeric code. There's at most one row per (email, purpose).
type PendingVerification struct {
	ID      string  `gorm:"primaryKey"`
	Email   string  `gorm:"uniqueIndex:idx_pending_email_purpose;not null"`
	Purpose Purpose `gorm:"uniqueIndex:idx_pending_email_purpose;not null"`
	Code    int     `gorm:"not null"`

	// Staged profile, registration only
	FullName     string
	Phone        string
	PasswordHash string

	// Recovery only
	UserID    *string `gorm:"index"`
	Confirmed bool    `gorm:"default:false"`

	CreatedAt time.Time `gorm:"index;not null"`
}
