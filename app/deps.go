package app

import (
	"context"
	"fmt"
	"time"

	"carlyn/auth-api/db"
	"carlyn/auth-api/internal"
	"carlyn/auth-api/internal/auth"
	"carlyn/auth-api/internal/ledger"
	"carlyn/auth-api/internal/mail"
	"carlyn/auth-api/internal/throttle"
	"carlyn/auth-api/internal/users"
	"carlyn/auth-api/pkg/security"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewDeps builds the service graph from the loaded config
func NewDeps(ctx context.Context) (*internal.Deps, error) {
	d := &internal.Deps{}

	gdb, err := db.Open(viper.GetString("database.driver"), viper.GetString("database.dsn"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	d.DB = gdb

	queue := viper.GetBool("mail.queue.enabled")

	if viper.GetString("throttle.store") == "redis" || queue {
		d.Redis = redis.NewClient(&redis.Options{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})

		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis, %w", err)
		}
	}

	var store throttle.Store = throttle.NewMemoryStore()
	if viper.GetString("throttle.store") == "redis" {
		store = throttle.NewRedisStore(d.Redis, viper.GetDuration("throttle.redis_ttl"))
	}

	smtp := mail.NewSMTP(
		viper.GetString("mail.host"),
		viper.GetInt("mail.port"),
		viper.GetString("mail.username"),
		viper.GetString("mail.password"),
		viper.GetString("mail.from"),
		viper.GetString("app.name"),
	)

	var sender mail.Sender = smtp
	if queue {
		opt := asynq.RedisClientOpt{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		}

		sender = mail.NewQueue(asynq.NewClient(opt))
		d.MailWorker = mail.NewWorker(opt, viper.GetInt("mail.queue.concurrency"))
		d.MailSMTP = smtp
	}

	d.Ledger = ledger.New(gdb)
	d.Users = users.NewStore(gdb)
	d.Tokens = security.NewTokens(viper.GetString("jwt.secret"), viper.GetDuration("jwt.expires_in"))

	d.Auth = &auth.Service{
		Ledger:   d.Ledger,
		Users:    d.Users,
		Hasher:   security.NewArgon(),
		Throttle: throttle.New(store),
		Mail:     sender,
		Tokens:   d.Tokens,
		Google:   security.NewGoogleVerifier(viper.GetString("google.client_id")),
		Now:      func() time.Time { return time.Now().UTC() },
	}

	zap.L().Info("Dependencies ready",
		zap.String("database", viper.GetString("database.driver")),
		zap.String("throttle", viper.GetString("throttle.store")),
		zap.Bool("mail_queue", queue))

	return d, nil
}

// StartWorkers runs the background consumers that the config enabled
func StartWorkers(d *internal.Deps) error {
	if d.MailWorker == nil {
		return nil
	}

	if err := d.MailWorker.Start(mail.NewServeMux(d.MailSMTP)); err != nil {
		return fmt.Errorf("failed to start mail worker, %w", err)
	}

	zap.L().Info("Mail worker started")
	return nil
}
