package bolt

import (
	"context"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"flatfinder/internal/models"
	"flatfinder/internal/repository"
)

type PhotoRepository struct {
	db *DB
}

func (r *PhotoRepository) Create(ctx context.Context, photo models.Photo) error {
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}

	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketFlats).Get([]byte(photo.FlatID)) == nil {
			return repository.ErrFlatNotFound
		}
		if err := putDoc(tx.Bucket(bucketPhotos), photo.ID, toPhotoDoc(photo)); err != nil {
			return err
		}
		return tx.Bucket(bucketPhotosByFlat).Put(compositeKey(photo.FlatID, photo.ID), nil)
	})
}

func (r *PhotoRepository) GetByID(ctx context.Context, id string) (models.Photo, error) {
	var photo models.Photo
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		photo, err = getPhoto(tx, id)
		return err
	})
	return photo, err
}

func (r *PhotoRepository) ListByFlat(ctx context.Context, flatID string) ([]models.Photo, error) {
	photos := make([]models.Photo, 0)
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		return scanPrefix(tx.Bucket(bucketPhotosByFlat), prefixKey(flatID), func(suffix []byte) error {
			photo, err := getPhoto(tx, string(suffix))
			if err != nil {
				return err
			}
			photos = append(photos, photo)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(photos, func(i, j int) bool {
		if photos[i].CreatedAt.Equal(photos[j].CreatedAt) {
			return photos[i].ID < photos[j].ID
		}
		return photos[i].CreatedAt.Before(photos[j].CreatedAt)
	})
	return photos, nil
}

func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		photo, err := getPhoto(tx, id)
		if err != nil {
			return err
		}
		return deletePhotoTx(tx, photo)
	})
}

func getPhoto(tx *bbolt.Tx, id string) (models.Photo, error) {
	var doc photoDoc
	found, err := getDoc(tx.Bucket(bucketPhotos), id, &doc)
	if err != nil {
		return models.Photo{}, err
	}
	if !found {
		return models.Photo{}, repository.ErrPhotoNotFound
	}
	return doc.model(), nil
}

func deletePhotoTx(tx *bbolt.Tx, photo models.Photo) error {
	if err := tx.Bucket(bucketPhotos).Delete([]byte(photo.ID)); err != nil {
		return err
	}
	return tx.Bucket(bucketPhotosByFlat).Delete(compositeKey(photo.FlatID, photo.ID))
}

func deletePhotosOfFlat(tx *bbolt.Tx, flatID string) error {
	var photoIDs []string
	err := scanPrefix(tx.Bucket(bucketPhotosByFlat), prefixKey(flatID), func(suffix []byte) error {
		photoIDs = append(photoIDs, string(suffix))
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range photoIDs {
		photo, err := getPhoto(tx, id)
		if err != nil {
			return err
		}
		if err := deletePhotoTx(tx, photo); err != nil {
			return err
		}
	}
	return nil
}
