package throttle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 10

var ErrContended = errors.New("throttle record updated concurrently too many times")

// RedisStore keeps records in Redis so lockouts survive restarts and are
// shared by every replica. Updates use WATCH/MULTI optimistic transactions.
type RedisStore struct {
	Client *redis.Client
	Prefix string

	// TTL bounds how long an idle record is kept. A record is never expired
	// before its lockout ends.
	TTL time.Duration
}

func NewRedisStore(c *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		Client: c,
		Prefix: "throttle:",
		TTL:    ttl,
	}
}

func (s *RedisStore) Update(ctx context.Context, key string, fn func(r *Record) error) error {
	key = s.Prefix + key

	var fnErr error

	txf := func(tx *redis.Tx) error {
		var r Record

		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &r); err != nil {
				return fmt.Errorf("corrupt throttle record %v, %w", key, err)
			}
		}

		fnErr = fn(&r)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if r.empty() {
				pipe.Del(ctx, key)
				return nil
			}

			b, err := json.Marshal(r)
			if err != nil {
				return err
			}

			pipe.Set(ctx, key, b, s.ttl(&r))
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.Client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}

		return fnErr
	}

	return ErrContended
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, s.Prefix+key).Err()
}

func (s *RedisStore) ttl(r *Record) time.Duration {
	ttl := s.TTL
	if d := time.Until(r.LockedUntil); d > ttl {
		ttl = d
	}
	return ttl
}
