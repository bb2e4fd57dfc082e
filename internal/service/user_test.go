package service

import (
	"context"
	"testing"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, new(MockEmbedder))

	u, err := f.users.Register(ctx, domain.UserCreate{
		Name: " Ann ", Surname: "Lee", Email: "Ann@Example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, 1, u.Version)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")))

	_, err = f.users.Register(ctx, domain.UserCreate{
		Name: "Other", Surname: "Person", Email: "ann@example.com", Password: "password456",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = f.users.Register(ctx, domain.UserCreate{Name: "x", Surname: "y"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUserService_Lookups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, new(MockEmbedder))
	ann := f.register(t, "ann@example.com")

	got, err := f.users.GetByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann.Email, got.Email)

	got, err = f.users.GetByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, got.ID)

	got, err = f.users.GetByName(ctx, "Ann")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, got.ID)

	_, err = f.users.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	ok, err := f.users.ExistsByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.users.ExistsByName(ctx, "Nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := f.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, new(MockEmbedder))
	ann := f.register(t, "ann@example.com")

	name := "Anna"
	password := "new-password"
	updated, err := f.users.Update(ctx, ann.ID, domain.UserUpdate{Name: &name, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Anna", updated.Name)
	assert.Equal(t, 2, updated.Version)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(password)))

	_, err = f.users.Update(ctx, ann.ID, domain.UserUpdate{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.users.Update(ctx, uuid.New(), domain.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, f.users.Delete(ctx, ann.ID))
	assert.ErrorIs(t, f.users.Delete(ctx, ann.ID), domain.ErrUserNotFound)
}
