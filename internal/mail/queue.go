package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeVerification    = "mail:verification"
	TypeRecovery        = "mail:recovery"
	TypePasswordChanged = "mail:password_changed"
)

type payload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Code  int    `json:"code,omitempty"`
}

// Enqueuer is the part of asynq.Client Queue needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue hands emails to asynq workers instead of talking SMTP inside the
// request
type Queue struct {
	Client   Enqueuer
	MaxRetry int
}

func NewQueue(c Enqueuer) *Queue {
	return &Queue{Client: c, MaxRetry: 5}
}

func (q *Queue) SendVerification(ctx context.Context, email, name string, code int) error {
	return q.enqueue(ctx, TypeVerification, payload{Email: email, Name: name, Code: code})
}

func (q *Queue) SendRecovery(ctx context.Context, email, name string, code int) error {
	return q.enqueue(ctx, TypeRecovery, payload{Email: email, Name: name, Code: code})
}

func (q *Queue) SendPasswordChanged(ctx context.Context, email, name string) error {
	return q.enqueue(ctx, TypePasswordChanged, payload{Email: email, Name: name})
}

func (q *Queue) enqueue(ctx context.Context, typ string, p payload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}

	info, err := q.Client.EnqueueContext(ctx, asynq.NewTask(typ, b), asynq.MaxRetry(q.MaxRetry))
	if err != nil {
		return fmt.Errorf("failed to enqueue %v, %w", typ, err)
	}

	zap.L().Debug("Mail enqueued", zap.String("type", typ), zap.String("task_id", info.ID))
	return nil
}

// NewServeMux routes queued mail tasks to s
func NewServeMux(s Sender) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TypeVerification, func(ctx context.Context, t *asynq.Task) error {
		p, err := decode(t)
		if err != nil {
			return err
		}
		return s.SendVerification(ctx, p.Email, p.Name, p.Code)
	})

	mux.HandleFunc(TypeRecovery, func(ctx context.Context, t *asynq.Task) error {
		p, err := decode(t)
		if err != nil {
			return err
		}
		return s.SendRecovery(ctx, p.Email, p.Name, p.Code)
	})

	mux.HandleFunc(TypePasswordChanged, func(ctx context.Context, t *asynq.Task) error {
		p, err := decode(t)
		if err != nil {
			return err
		}
		return s.SendPasswordChanged(ctx, p.Email, p.Name)
	})

	return mux
}

func decode(t *asynq.Task) (*payload, error) {
	var p payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// Retrying won't fix a broken payload
		return nil, fmt.Errorf("bad %v payload, %v, %w", t.Type(), err, asynq.SkipRetry)
	}
	return &p, nil
}

// NewWorker builds the asynq server that delivers queued mail
func NewWorker(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Logger:      zap.S(),
	})
}
