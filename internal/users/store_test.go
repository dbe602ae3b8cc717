package users

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"carlyn/auth-api/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})

	return NewStore(gdb)
}

func TestCreateAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Create(ctx, Profile{FullName: "Ana", Email: "a@x.com", Phone: "555", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Len(t, u.ID, 16)

	byEmail, err := s.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", byID.FullName)

	_, err = s.FindByEmail(ctx, "b@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, Profile{FullName: "Ana", Email: "a@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = s.Create(ctx, Profile{FullName: "Other", Email: "a@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdatePassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Create(ctx, Profile{FullName: "Ana", Email: "a@x.com", PasswordHash: "old"})
	require.NoError(t, err)

	require.NoError(t, s.UpdatePassword(ctx, u.ID, "new"))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)

	assert.ErrorIs(t, s.UpdatePassword(ctx, "missing", "x"), ErrNotFound)
}
