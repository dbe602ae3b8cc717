// Package throttle tracks failed logins and code resends per identifier and
// locks an identifier out once it crosses a threshold.
//
// Both trackers share one shape: count attempts, lock for a fixed window
// once the count reaches the threshold, clear the record when a lockout is
// seen to have elapsed. Resends also enforce a cooldown between requests.
package throttle

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Policy configures one tracker
type Policy struct {
	Threshold int
	Lockout   time.Duration
	Cooldown  time.Duration
}

var (
	LoginPolicy  = Policy{Threshold: 3, Lockout: 2 * time.Minute}
	ResendPolicy = Policy{Threshold: 5, Lockout: 10 * time.Minute, Cooldown: 30 * time.Second}
)

const (
	loginPrefix  = "login:"
	resendPrefix = "resend:"
)

// LimitError is returned while an identifier is locked out or cooling down
type LimitError struct {
	Remaining time.Duration
	Locked    bool
}

func (e *LimitError) Error() string {
	if e.Locked {
		return fmt.Sprintf("locked out for %d more seconds", e.Seconds())
	}
	return fmt.Sprintf("cooling down for %d more seconds", e.Seconds())
}

// Seconds returns the remaining wait rounded up
func (e *LimitError) Seconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

type Throttle struct {
	Store  Store
	Login  Policy
	Resend Policy
	Now    func() time.Time
}

func New(store Store) *Throttle {
	return &Throttle{
		Store:  store,
		Login:  LoginPolicy,
		Resend: ResendPolicy,
		Now:    time.Now,
	}
}

// locked reports an active lockout, clearing r when the lockout has elapsed
func locked(r *Record, now time.Time) *LimitError {
	if r.LockedUntil.IsZero() {
		return nil
	}

	if now.Before(r.LockedUntil) {
		return &LimitError{Remaining: r.LockedUntil.Sub(now), Locked: true}
	}

	*r = Record{}
	return nil
}

// CheckLogin fails with *LimitError while id is locked out
func (t *Throttle) CheckLogin(ctx context.Context, id string) error {
	now := t.Now()

	return t.Store.Update(ctx, loginPrefix+id, func(r *Record) error {
		if err := locked(r, now); err != nil {
			return err
		}
		return nil
	})
}

// RecordLoginFailure counts a failed credential check and starts the
// lockout once the threshold is reached
func (t *Throttle) RecordLoginFailure(ctx context.Context, id string) error {
	now := t.Now()

	return t.Store.Update(ctx, loginPrefix+id, func(r *Record) error {
		r.Attempts++
		r.LastAttempt = now

		if r.Attempts >= t.Login.Threshold {
			r.LockedUntil = now.Add(t.Login.Lockout)
			zap.L().Info("Login locked", zap.String("identifier", id), zap.Duration("for", t.Login.Lockout))
		}

		return nil
	})
}

// ClearLogin forgets the failure history of id
func (t *Throttle) ClearLogin(ctx context.Context, id string) error {
	return t.Store.Delete(ctx, loginPrefix+id)
}

// AllowResend checks the lockout and cooldown for id and, when both pass,
// records the resend
func (t *Throttle) AllowResend(ctx context.Context, id string) error {
	now := t.Now()

	return t.Store.Update(ctx, resendPrefix+id, func(r *Record) error {
		if err := locked(r, now); err != nil {
			return err
		}

		if !r.LastAttempt.IsZero() {
			if since := now.Sub(r.LastAttempt); since < t.Resend.Cooldown {
				return &LimitError{Remaining: t.Resend.Cooldown - since}
			}
		}

		r.Attempts++
		r.LastAttempt = now

		if r.Attempts >= t.Resend.Threshold {
			r.LockedUntil = now.Add(t.Resend.Lockout)
			zap.L().Info("Resends locked", zap.String("identifier", id), zap.Duration("for", t.Resend.Lockout))
		}

		return nil
	})
}
