package internal

import (
	"carlyn/auth-api/internal/auth"
	"carlyn/auth-api/internal/ledger"
	"carlyn/auth-api/internal/mail"
	"carlyn/auth-api/internal/users"
	"carlyn/auth-api/pkg/security"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps is everything the handlers and background workers share
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Ledger *ledger.Ledger
	Users  *users.Store
	Tokens *security.Tokens
	Auth   *auth.Service

	// MailWorker and MailSMTP are set when mail goes through the queue
	MailWorker *asynq.Server
	MailSMTP   *mail.SMTP
}
