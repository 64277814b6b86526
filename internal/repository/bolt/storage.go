// Package bolt implements the repository contracts on bbolt, storing each
// record as a JSON document. Secondary indexes live in their own buckets and
// are maintained in the same transaction as the documents they point to.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"flatfinder/internal/config"
	"flatfinder/internal/repository"
)

var (
	bucketUsers          = []byte("users")
	bucketUsersByEmail   = []byte("users_by_email")
	bucketFlats          = []byte("flats")
	bucketFavorites      = []byte("favorites")
	bucketFavoritesByFlt = []byte("favorites_by_flat")
	bucketMessages       = []byte("messages")
	bucketPhotos         = []byte("photos")
	bucketPhotosByFlat   = []byte("photos_by_flat")
)

var allBuckets = [][]byte{
	bucketUsers,
	bucketUsersByEmail,
	bucketFlats,
	bucketFavorites,
	bucketFavoritesByFlt,
	bucketMessages,
	bucketPhotos,
	bucketPhotosByFlat,
}

type DB struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file and returns a Store whose Close
// releases the file lock.
func Open(path string) (*repository.Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return db.Store(), nil
}

func openDB(path string) (*DB, error) {
	bdb, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	db := &DB{db: bdb}
	if err := db.initBuckets(); err != nil {
		bdb.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return db, nil
}

func (d *DB) Store() *repository.Store {
	return &repository.Store{
		Backend:   config.BackendBolt,
		Users:     &UserRepository{db: d},
		Flats:     &FlatRepository{db: d},
		Favorites: &FavoriteRepository{db: d},
		Messages:  &MessageRepository{db: d},
		Photos:    &PhotoRepository{db: d},
		Ping:      d.Ping,
		Close:     d.Close,
	}
}

func (d *DB) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers) == nil {
			return fmt.Errorf("users bucket not found")
		}
		return nil
	})
}

func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) initBuckets() error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// view and update refuse to start a transaction for a cancelled request.
func (d *DB) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

func (d *DB) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

func getDoc(b *bbolt.Bucket, key string, out any) (bool, error) {
	raw := b.Get([]byte(key))
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func putDoc(b *bbolt.Bucket, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.Put([]byte(key), raw)
}

// compositeKey joins parts with a NUL separator so prefix scans cannot bleed
// into neighbouring ids.
func compositeKey(parts ...string) []byte {
	var key []byte
	for i, p := range parts {
		if i > 0 {
			key = append(key, 0)
		}
		key = append(key, p...)
	}
	return key
}

func prefixKey(part string) []byte {
	return append([]byte(part), 0)
}

// scanPrefix calls fn for every key under prefix; fn receives the suffix.
func scanPrefix(b *bbolt.Bucket, prefix []byte, fn func(suffix []byte) error) error {
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
		if err := fn(k[len(prefix):]); err != nil {
			return err
		}
	}
	return nil
}

func hasPrefix(k, prefix []byte) bool {
	return len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix)
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return make([]T, 0)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
