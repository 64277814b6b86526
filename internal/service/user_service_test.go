package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatfinder/internal/queue"
	"flatfinder/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func TestUserGetRequiresSelfOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")
	bob := env.register(t, "bob@example.com")
	root := env.admin(t, "root@example.com")

	_, err := env.users.Get(ctx, bob, alice.UserID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := env.users.Get(ctx, alice, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = env.users.Get(ctx, root, alice.UserID)
	assert.NoError(t, err)
}

func TestUserListIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")
	root := env.admin(t, "root@example.com")

	_, err := env.users.List(ctx, alice, Page{})
	assert.ErrorIs(t, err, ErrForbidden)

	users, err := env.users.List(ctx, root, Page{Page: 1, PerPage: 1})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUpdateProfileIsPartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")

	updated, err := env.users.UpdateProfile(ctx, alice, alice.UserID, ProfileInput{FirstName: ptr("Alicia")})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.FirstName)
	assert.Equal(t, "User", updated.LastName)
	assert.Equal(t, 1990, updated.Birthdate.Year())
	assert.Equal(t, "alice@example.com", updated.Email)

	// The password survives profile edits.
	_, err = env.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestUpdateProfileEmailUniqueness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")
	env.register(t, "bob@example.com")

	_, err := env.users.UpdateProfile(ctx, alice, alice.UserID, ProfileInput{Email: ptr("BOB@example.com")})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)

	_, err = env.users.UpdateProfile(ctx, alice, alice.UserID, ProfileInput{Email: ptr("nope")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")

	_, err = env.users.UpdateProfile(ctx, alice, alice.UserID, ProfileInput{FirstName: ptr("  ")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must not be empty", verr.Fields["firstName"])
}

func TestUpdateProfileForbiddenForOthers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice@example.com")
	bob := env.register(t, "bob@example.com")

	_, err := env.users.UpdateProfile(context.Background(), bob, alice.UserID, ProfileInput{FirstName: ptr("x")})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")
	root := env.admin(t, "root@example.com")

	err := env.users.ChangePassword(ctx, alice, alice.UserID, PasswordInput{Password: "newpass1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields["currentPassword"])

	err = env.users.ChangePassword(ctx, alice, alice.UserID, PasswordInput{Password: "newpass1", CurrentPassword: "wrong"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is incorrect", verr.Fields["currentPassword"])

	require.NoError(t, env.users.ChangePassword(ctx, alice, alice.UserID, PasswordInput{Password: "newpass1", CurrentPassword: "secret1"}))
	_, err = env.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "newpass1"})
	assert.NoError(t, err)

	// Admin reset needs no current password.
	require.NoError(t, env.users.ChangePassword(ctx, root, alice.UserID, PasswordInput{Password: "reset12"}))
	_, err = env.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "reset12"})
	assert.NoError(t, err)

	stored, err := env.store.Users.GetByID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, "reset12", string(stored.PasswordHash))
}

func TestSetAdminIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")
	root := env.admin(t, "root@example.com")

	_, err := env.users.SetAdmin(ctx, alice, alice.UserID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	user, err := env.users.SetAdmin(ctx, root, alice.UserID, true)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
}

func TestDeleteUserCascadesAndEnqueuesPurges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")
	bob := env.register(t, "bob@example.com")
	flatID := env.createFlat(t, alice, "Berlin", 900)
	require.NoError(t, env.favorites.Add(ctx, bob, bob.UserID, flatID))

	assert.ErrorIs(t, env.users.Delete(ctx, bob, alice.UserID), ErrForbidden)
	require.NoError(t, env.users.Delete(ctx, alice, alice.UserID))

	_, err := env.flats.Get(ctx, flatID)
	assert.ErrorIs(t, err, repository.ErrFlatNotFound)
	favs, err := env.favorites.List(ctx, bob, bob.UserID)
	require.NoError(t, err)
	assert.Empty(t, favs)
	assert.Equal(t, []queue.Task{queue.PurgePhotos(flatID)}, env.publisher.tasks)

	_, err = env.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPage(t *testing.T) {
	assert.Equal(t, DefaultPerPage, Page{}.Limit())
	assert.Equal(t, 0, Page{}.Offset())
	assert.Equal(t, DefaultPerPage, Page{PerPage: MaxPerPage + 1}.Limit())
	assert.Equal(t, 20, Page{Page: 3, PerPage: 10}.Offset())

	huge := Page{Page: math.MaxInt, PerPage: 50}
	assert.Equal(t, (math.MaxInt32-1)*50, huge.Offset())
	assert.Positive(t, Page{Page: math.MaxInt, PerPage: MaxPerPage}.Offset())
}

func TestUpdateProfileRejectsFutureBirthdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com")

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	_, err := env.users.UpdateProfile(ctx, alice, alice.UserID, ProfileInput{Birthdate: ptr(future)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be in the past", verr.Fields["birthdate"])

	user, err := env.store.Users.GetByID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1990, user.Birthdate.Year())
}
