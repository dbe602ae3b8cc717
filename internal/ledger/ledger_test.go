package ledger

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"carlyn/auth-api/db"
	"carlyn/auth-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLedger(t *testing.T) (*Ledger, *clock) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})

	c := &clock{t: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	codes := []int{123456, 234567, 345678, 456789}

	l := New(gdb)
	l.Now = c.now
	l.NewCode = func() (int, error) {
		code := codes[0]
		codes = append(codes[1:], code)
		return code, nil
	}

	return l, c
}

func TestCreatePendingReplacesExisting(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreatePending(ctx, "a@x.com", model.PurposeRegistration, Payload{FullName: "First"}, true)
	require.NoError(t, err)

	second, err := l.CreatePending(ctx, "a@x.com", model.PurposeRegistration, Payload{FullName: "Second"}, true)
	require.NoError(t, err)

	var n int64
	require.NoError(t, l.DB.Model(&model.PendingVerification{}).
		Where("email = ? AND purpose = ?", "a@x.com", model.PurposeRegistration).
		Count(&n).Error)
	assert.EqualValues(t, 1, n)

	got, err := l.FindActive(ctx, "a@x.com", model.PurposeRegistration)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "Second", got.FullName)
	assert.Equal(t, 234567, got.Code)
}

func TestCreatePendingConflictWithoutReplace(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreatePending(ctx, "a@x.com", model.PurposeRecovery, Payload{}, false)
	require.NoError(t, err)

	_, err = l.CreatePending(ctx, "a@x.com", model.PurposeRecovery, Payload{}, false)
	assert.ErrorIs(t, err, ErrConflict)

	// Purposes are partitioned
	_, err = l.CreatePending(ctx, "a@x.com", model.PurposeRegistration, Payload{}, false)
	assert.NoError(t, err)
}

func TestFindActiveDoesNotFilterExpired(t *testing.T) {
	l, c := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreatePending(ctx, "a@x.com", model.PurposeRegistration, Payload{}, true)
	require.NoError(t, err)

	c.advance(time.Hour)

	got, err := l.FindActive(ctx, "a@x.com", model.PurposeRegistration)
	require.NoError(t, err)
	assert.True(t, Expired(got, 4*time.Minute, c.now()))
}

func TestExpiredBoundaryIsStrict(t *testing.T) {
	created := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	rec := &model.PendingVerification{CreatedAt: created}

	assert.False(t, Expired(rec, 4*time.Minute, created.Add(4*time.Minute-time.Nanosecond)))
	assert.True(t, Expired(rec, 4*time.Minute, created.Add(4*time.Minute)))
}

func TestConsumeAndDelete(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	rec, err := l.CreatePending(ctx, "a@x.com", model.PurposeRegistration, Payload{}, true)
	require.NoError(t, err)

	require.NoError(t, l.ConsumeAndDelete(ctx, rec.ID))

	_, err = l.FindActive(ctx, "a@x.com", model.PurposeRegistration)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, l.ConsumeAndDelete(ctx, rec.ID), ErrNotFound)
}

func TestMarkConfirmed(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	rec, err := l.CreatePending(ctx, "a@x.com", model.PurposeRecovery, Payload{}, true)
	require.NoError(t, err)
	assert.False(t, rec.Confirmed)

	require.NoError(t, l.MarkConfirmed(ctx, rec.ID))

	got, err := l.FindActive(ctx, "a@x.com", model.PurposeRecovery)
	require.NoError(t, err)
	assert.True(t, got.Confirmed)

	assert.ErrorIs(t, l.MarkConfirmed(ctx, "missing"), ErrNotFound)
}

func TestRefreshCodeResetsClockAndRecoveryConfirmation(t *testing.T) {
	l, c := newTestLedger(t)
	ctx := context.Background()

	userID := "user-1"
	rec, err := l.CreatePending(ctx, "a@x.com", model.PurposeRecovery, Payload{UserID: &userID}, true)
	require.NoError(t, err)
	require.NoError(t, l.MarkConfirmed(ctx, rec.ID))

	c.advance(3 * time.Minute)

	refreshed, err := l.RefreshCode(ctx, rec.ID)
	require.NoError(t, err)
	assert.NotEqual(t, rec.Code, refreshed.Code)
	assert.False(t, refreshed.Confirmed)

	got, err := l.FindActive(ctx, "a@x.com", model.PurposeRecovery)
	require.NoError(t, err)
	assert.Equal(t, refreshed.Code, got.Code)
	assert.False(t, got.Confirmed)
	assert.True(t, got.CreatedAt.Equal(c.now()))
	require.NotNil(t, got.UserID)
	assert.Equal(t, userID, *got.UserID)
}

func TestRefreshCodeMissing(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.RefreshCode(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepExpired(t *testing.T) {
	l, c := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreatePending(ctx, "old@x.com", model.PurposeRecovery, Payload{}, true)
	require.NoError(t, err)

	c.advance(8 * time.Minute)

	_, err = l.CreatePending(ctx, "new@x.com", model.PurposeRegistration, Payload{}, true)
	require.NoError(t, err)

	c.advance(3 * time.Minute)

	n, err := l.SweepExpired(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = l.FindActive(ctx, "old@x.com", model.PurposeRecovery)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.FindActive(ctx, "new@x.com", model.PurposeRegistration)
	assert.NoError(t, err)
}
