package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatfinder/internal/queue"
	"flatfinder/internal/repository"
)

func TestCreateFlatValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")

	_, err := env.flats.Create(context.Background(), owner, FlatInput{
		City:          "Berlin",
		StreetNumber:  -1,
		RentPrice:     0,
		YearBuilt:     1500,
		DateAvailable: "soon",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields["streetName"])
	assert.Equal(t, "must be greater than 0", verr.Fields["streetNumber"])
	assert.Equal(t, "must be greater than 0", verr.Fields["rentPrice"])
	assert.Equal(t, "must be greater than 0", verr.Fields["areaSize"])
	assert.Equal(t, "must be 1800 or more", verr.Fields["yearBuilt"])
	assert.Contains(t, verr.Fields["dateAvailable"], "must be a date")
	assert.NotContains(t, verr.Fields, "city")
}

func TestFlatNumbersMustFitStorage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")

	_, err := env.flats.Create(ctx, owner, FlatInput{
		City:          "Berlin",
		StreetName:    "Main Street",
		StreetNumber:  1 << 31,
		AreaSize:      60,
		YearBuilt:     1998,
		RentPrice:     1 << 40,
		DateAvailable: "2025-03-01",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be 2147483647 or less", verr.Fields["streetNumber"])
	assert.Equal(t, "must be 2147483647 or less", verr.Fields["rentPrice"])
	assert.NotContains(t, verr.Fields, "areaSize")

	flatID := env.createFlat(t, owner, "Berlin", 700)
	_, err = env.flats.Update(ctx, owner, flatID, FlatPatch{AreaSize: ptr(1 << 32)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be 2147483647 or less", verr.Fields["areaSize"])

	_, err = env.flats.List(ctx, FlatQuery{MaxPrice: 1 << 33})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "maxPrice")
}

func TestFlatListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	env.createFlat(t, owner, "Berlin", 700)
	env.createFlat(t, owner, "Berlin", 1200)
	env.createFlat(t, owner, "Paris", 900)

	flats, err := env.flats.List(ctx, FlatQuery{City: "berlin", SortBy: "rentPrice", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, flats, 2)
	assert.Equal(t, 1200, flats[0].RentPrice)

	flats, err = env.flats.List(ctx, FlatQuery{MinPrice: 800, MaxPrice: 1000})
	require.NoError(t, err)
	require.Len(t, flats, 1)
	assert.Equal(t, "Paris", flats[0].City)

	flats, err = env.flats.List(ctx, FlatQuery{AvailableBy: "2025-02-01"})
	require.NoError(t, err)
	assert.Empty(t, flats)

	_, err = env.flats.List(ctx, FlatQuery{SortBy: "owner"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "sortBy")
}

func TestFlatUpdateOwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	other := env.register(t, "other@example.com")
	root := env.admin(t, "root@example.com")
	flatID := env.createFlat(t, owner, "Berlin", 700)

	_, err := env.flats.Update(ctx, other, flatID, FlatPatch{RentPrice: ptr(1)})
	assert.ErrorIs(t, err, ErrForbidden)

	flat, err := env.flats.Update(ctx, owner, flatID, FlatPatch{RentPrice: ptr(750), HasAC: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, 750, flat.RentPrice)
	assert.True(t, flat.HasAC)
	assert.Equal(t, "Berlin", flat.City)

	flat, err = env.flats.Update(ctx, root, flatID, FlatPatch{City: ptr("Hamburg")})
	require.NoError(t, err)
	assert.Equal(t, "Hamburg", flat.City)
	assert.Equal(t, owner.UserID, flat.OwnerID)

	_, err = env.flats.Update(ctx, owner, "missing", FlatPatch{})
	assert.ErrorIs(t, err, repository.ErrFlatNotFound)
}

func TestFlatDeleteEnqueuesPurge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	other := env.register(t, "other@example.com")
	flatID := env.createFlat(t, owner, "Berlin", 700)

	assert.ErrorIs(t, env.flats.Delete(ctx, other, flatID), ErrForbidden)
	require.NoError(t, env.flats.Delete(ctx, owner, flatID))
	assert.Equal(t, []queue.Task{queue.PurgePhotos(flatID)}, env.publisher.tasks)

	_, err := env.flats.Get(ctx, flatID)
	assert.ErrorIs(t, err, repository.ErrFlatNotFound)
}

func TestFavorites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	fan := env.register(t, "fan@example.com")
	flatID := env.createFlat(t, owner, "Berlin", 700)

	require.NoError(t, env.favorites.Add(ctx, fan, fan.UserID, flatID))
	assert.ErrorIs(t, env.favorites.Add(ctx, fan, fan.UserID, flatID), repository.ErrFavoriteExists)
	assert.ErrorIs(t, env.favorites.Add(ctx, fan, fan.UserID, "missing"), repository.ErrFlatNotFound)
	assert.ErrorIs(t, env.favorites.Add(ctx, owner, fan.UserID, flatID), ErrForbidden)

	flats, err := env.favorites.List(ctx, fan, fan.UserID)
	require.NoError(t, err)
	require.Len(t, flats, 1)
	assert.Equal(t, flatID, flats[0].ID)

	require.NoError(t, env.favorites.Remove(ctx, fan, fan.UserID, flatID))
	assert.NoError(t, env.favorites.Remove(ctx, fan, fan.UserID, flatID), "removing twice is a no-op")
}
