// Package repository defines the persistence contracts of the API. Two
// adapters implement them: postgres (pgx) and bolt (an embedded document
// store). The adapter is chosen once at startup, never at the call site.
package repository

import (
	"context"
	"errors"
	"time"

	"flatfinder/internal/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrFlatNotFound     = errors.New("flat not found")
	ErrFavoriteExists   = errors.New("flat already in favorites")
	ErrFavoriteNotFound = errors.New("favorite not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrPhotoNotFound    = errors.New("photo not found")
)

type UserRepository interface {
	// Create fails with ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	// Update writes profile fields and email; the password hash and admin
	// flag are left untouched.
	Update(ctx context.Context, user models.User) error
	UpdatePassword(ctx context.Context, id string, hash []byte) error
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
	// Delete removes the user together with their flats, favorites, photo
	// records and messages. Messages about removed flats lose their flat id.
	Delete(ctx context.Context, id string) error
}

type FlatRepository interface {
	Create(ctx context.Context, flat models.Flat) error
	GetByID(ctx context.Context, id string) (models.Flat, error)
	List(ctx context.Context, filter FlatFilter) ([]models.Flat, error)
	Update(ctx context.Context, flat models.Flat) error
	Delete(ctx context.Context, id string) error
}

type FavoriteRepository interface {
	// Add fails with ErrFlatNotFound for unknown flats and ErrFavoriteExists
	// for duplicates.
	Add(ctx context.Context, userID, flatID string) error
	Remove(ctx context.Context, userID, flatID string) error
	ListFlats(ctx context.Context, userID string) ([]models.Flat, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) error
	GetByID(ctx context.Context, id string) (models.Message, error)
	ListByRecipient(ctx context.Context, userID string, limit, offset int) ([]models.Message, error)
	ListBySender(ctx context.Context, userID string, limit, offset int) ([]models.Message, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type PhotoRepository interface {
	Create(ctx context.Context, photo models.Photo) error
	GetByID(ctx context.Context, id string) (models.Photo, error)
	ListByFlat(ctx context.Context, flatID string) ([]models.Photo, error)
	Delete(ctx context.Context, id string) error
}

// Store bundles one adapter's repositories.
type Store struct {
	Backend   string
	Users     UserRepository
	Flats     FlatRepository
	Favorites FavoriteRepository
	Messages  MessageRepository
	Photos    PhotoRepository

	Ping  func(ctx context.Context) error
	Close func() error
}

type FlatSort string

const (
	SortCreatedAt     FlatSort = "createdAt"
	SortCity          FlatSort = "city"
	SortRentPrice     FlatSort = "rentPrice"
	SortAreaSize      FlatSort = "areaSize"
	SortDateAvailable FlatSort = "dateAvailable"
)

// FlatFilter narrows a flat listing. Zero values mean "no constraint".
type FlatFilter struct {
	City     string
	OwnerID  string
	MinPrice int
	MaxPrice int
	MinArea  int
	MaxArea  int
	// AvailableBy keeps flats available on or before the given day.
	AvailableBy time.Time
	SortBy      FlatSort
	Descending  bool
	Limit       int
	Offset      int
}

func (f FlatFilter) Matches(flat models.Flat) bool {
	if f.City != "" && !equalFold(f.City, flat.City) {
		return false
	}
	if f.OwnerID != "" && f.OwnerID != flat.OwnerID {
		return false
	}
	if f.MinPrice > 0 && flat.RentPrice < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && flat.RentPrice > f.MaxPrice {
		return false
	}
	if f.MinArea > 0 && flat.AreaSize < f.MinArea {
		return false
	}
	if f.MaxArea > 0 && flat.AreaSize > f.MaxArea {
		return false
	}
	if !f.AvailableBy.IsZero() && flat.DateAvailable.After(f.AvailableBy) {
		return false
	}
	return true
}
