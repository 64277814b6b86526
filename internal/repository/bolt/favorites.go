package bolt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"flatfinder/internal/models"
	"flatfinder/internal/repository"
)

// Favorites are keyed user\x00flat; favorites_by_flat holds the mirrored
// flat\x00user key so a flat delete can find its favorites without a scan.
type FavoriteRepository struct {
	db *DB
}

func (r *FavoriteRepository) Add(ctx context.Context, userID, flatID string) error {
	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(userID)) == nil {
			return repository.ErrUserNotFound
		}
		if tx.Bucket(bucketFlats).Get([]byte(flatID)) == nil {
			return repository.ErrFlatNotFound
		}

		favorites := tx.Bucket(bucketFavorites)
		key := compositeKey(userID, flatID)
		if favorites.Get(key) != nil {
			return repository.ErrFavoriteExists
		}
		if err := putDoc(favorites, string(key), favoriteDoc{CreatedAt: time.Now().UTC()}); err != nil {
			return err
		}
		return tx.Bucket(bucketFavoritesByFlt).Put(compositeKey(flatID, userID), nil)
	})
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, flatID string) error {
	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		favorites := tx.Bucket(bucketFavorites)
		key := compositeKey(userID, flatID)
		if favorites.Get(key) == nil {
			return repository.ErrFavoriteNotFound
		}
		if err := favorites.Delete(key); err != nil {
			return err
		}
		return tx.Bucket(bucketFavoritesByFlt).Delete(compositeKey(flatID, userID))
	})
}

func (r *FavoriteRepository) ListFlats(ctx context.Context, userID string) ([]models.Flat, error) {
	type entry struct {
		flat    models.Flat
		addedAt time.Time
	}
	var entries []entry

	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		favorites := tx.Bucket(bucketFavorites)
		prefix := prefixKey(userID)
		return scanPrefix(favorites, prefix, func(suffix []byte) error {
			flatID := string(suffix)
			var fav favoriteDoc
			if _, err := getDoc(favorites, string(compositeKey(userID, flatID)), &fav); err != nil {
				return err
			}
			flat, err := getFlat(tx, flatID)
			if err != nil {
				return fmt.Errorf("favorite %s: %w", flatID, err)
			}
			entries = append(entries, entry{flat: flat, addedAt: fav.CreatedAt})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].addedAt.Equal(entries[j].addedAt) {
			return entries[i].flat.ID < entries[j].flat.ID
		}
		return entries[i].addedAt.Before(entries[j].addedAt)
	})

	flats := make([]models.Flat, 0, len(entries))
	for _, e := range entries {
		flats = append(flats, e.flat)
	}
	return flats, nil
}

func deleteFavoritesOfFlat(tx *bbolt.Tx, flatID string) error {
	var userIDs []string
	err := scanPrefix(tx.Bucket(bucketFavoritesByFlt), prefixKey(flatID), func(suffix []byte) error {
		userIDs = append(userIDs, string(suffix))
		return nil
	})
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		if err := deleteFavoriteTx(tx, userID, flatID); err != nil {
			return err
		}
	}
	return nil
}

func deleteFavoritesOfUser(tx *bbolt.Tx, userID string) error {
	var flatIDs []string
	err := scanPrefix(tx.Bucket(bucketFavorites), prefixKey(userID), func(suffix []byte) error {
		flatIDs = append(flatIDs, string(suffix))
		return nil
	})
	if err != nil {
		return err
	}
	for _, flatID := range flatIDs {
		if err := deleteFavoriteTx(tx, userID, flatID); err != nil {
			return err
		}
	}
	return nil
}

func deleteFavoriteTx(tx *bbolt.Tx, userID, flatID string) error {
	if err := tx.Bucket(bucketFavorites).Delete(compositeKey(userID, flatID)); err != nil {
		return err
	}
	return tx.Bucket(bucketFavoritesByFlt).Delete(compositeKey(flatID, userID))
}
