package service

import (
	"context"
	"errors"

	"flatfinder/internal/models"
	"flatfinder/internal/repository"
	"flatfinder/internal/security"
)

type FavoriteService struct {
	favorites repository.FavoriteRepository
}

func NewFavoriteService(favorites repository.FavoriteRepository) *FavoriteService {
	return &FavoriteService{favorites: favorites}
}

func (s *FavoriteService) List(ctx context.Context, actor security.Identity, userID string) ([]models.Flat, error) {
	if !actor.CanActOn(userID) {
		return nil, ErrForbidden
	}
	return s.favorites.ListFlats(ctx, userID)
}

func (s *FavoriteService) Add(ctx context.Context, actor security.Identity, userID, flatID string) error {
	if !actor.CanActOn(userID) {
		return ErrForbidden
	}
	if flatID == "" {
		return invalid("Invalid favorite.", "flatId", "is required")
	}
	return s.favorites.Add(ctx, userID, flatID)
}

func (s *FavoriteService) Remove(ctx context.Context, actor security.Identity, userID, flatID string) error {
	if !actor.CanActOn(userID) {
		return ErrForbidden
	}
	// Removing a flat that is not a favorite leaves the list as requested.
	if err := s.favorites.Remove(ctx, userID, flatID); err != nil && !errors.Is(err, repository.ErrFavoriteNotFound) {
		return err
	}
	return nil
}
