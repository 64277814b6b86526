package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"flatfinder/internal/models"
	"flatfinder/internal/repository"
)

type FlatRepository struct {
	db *DB
}

func (r *FlatRepository) Create(ctx context.Context, flat models.Flat) error {
	if flat.CreatedAt.IsZero() {
		flat.CreatedAt = time.Now().UTC()
	}
	flat.UpdatedAt = flat.CreatedAt

	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(flat.OwnerID)) == nil {
			return repository.ErrUserNotFound
		}
		flats := tx.Bucket(bucketFlats)
		if flats.Get([]byte(flat.ID)) != nil {
			return fmt.Errorf("flat %s already exists", flat.ID)
		}
		return putDoc(flats, flat.ID, toFlatDoc(flat))
	})
}

func (r *FlatRepository) GetByID(ctx context.Context, id string) (models.Flat, error) {
	var flat models.Flat
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		flat, err = getFlat(tx, id)
		return err
	})
	return flat, err
}

func (r *FlatRepository) List(ctx context.Context, filter repository.FlatFilter) ([]models.Flat, error) {
	flats := make([]models.Flat, 0)
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		return forEachFlat(tx, func(flat models.Flat) error {
			if filter.Matches(flat) {
				flats = append(flats, flat)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortFlats(flats, filter.SortBy, filter.Descending)
	return page(flats, filter.Limit, filter.Offset), nil
}

func (r *FlatRepository) Update(ctx context.Context, flat models.Flat) error {
	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		current, err := getFlat(tx, flat.ID)
		if err != nil {
			return err
		}
		current.City = flat.City
		current.StreetName = flat.StreetName
		current.StreetNumber = flat.StreetNumber
		current.AreaSize = flat.AreaSize
		current.HasAC = flat.HasAC
		current.YearBuilt = flat.YearBuilt
		current.RentPrice = flat.RentPrice
		current.DateAvailable = flat.DateAvailable
		current.UpdatedAt = time.Now().UTC()
		return putDoc(tx.Bucket(bucketFlats), current.ID, toFlatDoc(current))
	})
}

func (r *FlatRepository) Delete(ctx context.Context, id string) error {
	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketFlats).Get([]byte(id)) == nil {
			return repository.ErrFlatNotFound
		}
		return deleteFlatTx(tx, id)
	})
}

func getFlat(tx *bbolt.Tx, id string) (models.Flat, error) {
	var doc flatDoc
	found, err := getDoc(tx.Bucket(bucketFlats), id, &doc)
	if err != nil {
		return models.Flat{}, err
	}
	if !found {
		return models.Flat{}, repository.ErrFlatNotFound
	}
	return doc.model(), nil
}

func forEachFlat(tx *bbolt.Tx, fn func(flat models.Flat) error) error {
	return tx.Bucket(bucketFlats).ForEach(func(k, v []byte) error {
		var doc flatDoc
		if err := json.Unmarshal(v, &doc); err != nil {
			return fmt.Errorf("decode flat %s: %w", k, err)
		}
		return fn(doc.model())
	})
}

func flatIDsByOwner(tx *bbolt.Tx, ownerID string) ([]string, error) {
	var ids []string
	err := forEachFlat(tx, func(flat models.Flat) error {
		if flat.OwnerID == ownerID {
			ids = append(ids, flat.ID)
		}
		return nil
	})
	return ids, err
}

// deleteFlatTx removes a flat with its favorites and photo records, and
// detaches messages that referred to it.
func deleteFlatTx(tx *bbolt.Tx, id string) error {
	if err := deleteFavoritesOfFlat(tx, id); err != nil {
		return err
	}
	if err := deletePhotosOfFlat(tx, id); err != nil {
		return err
	}
	if err := detachMessagesFromFlat(tx, id); err != nil {
		return err
	}
	return tx.Bucket(bucketFlats).Delete([]byte(id))
}

func sortFlats(flats []models.Flat, by repository.FlatSort, desc bool) {
	compare := func(a, b models.Flat) int {
		switch by {
		case repository.SortCity:
			return strings.Compare(strings.ToLower(a.City), strings.ToLower(b.City))
		case repository.SortRentPrice:
			return a.RentPrice - b.RentPrice
		case repository.SortAreaSize:
			return a.AreaSize - b.AreaSize
		case repository.SortDateAvailable:
			return a.DateAvailable.Compare(b.DateAvailable)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(flats, func(i, j int) bool {
		c := compare(flats[i], flats[j])
		if c == 0 {
			c = strings.Compare(flats[i].ID, flats[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
