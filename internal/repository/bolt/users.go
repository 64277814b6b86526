package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"flatfinder/internal/models"
	"flatfinder/internal/repository"
)

type UserRepository struct {
	db *DB
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	user.Email = repository.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt

	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		byEmail := tx.Bucket(bucketUsersByEmail)
		if byEmail.Get([]byte(user.Email)) != nil {
			return repository.ErrEmailTaken
		}
		users := tx.Bucket(bucketUsers)
		if users.Get([]byte(user.ID)) != nil {
			return fmt.Errorf("user %s already exists", user.ID)
		}
		if err := byEmail.Put([]byte(user.Email), []byte(user.ID)); err != nil {
			return err
		}
		return putDoc(users, user.ID, toUserDoc(user))
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		user, err = getUser(tx, id)
		return err
	})
	return user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUsersByEmail).Get([]byte(repository.NormalizeEmail(email)))
		if id == nil {
			return repository.ErrUserNotFound
		}
		var err error
		user, err = getUser(tx, string(id))
		return err
	})
	return user, err
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	users := make([]models.User, 0)
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			var doc userDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("decode user %s: %w", k, err)
			}
			users = append(users, doc.model())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return page(users, limit, offset), nil
}

func (r *UserRepository) Update(ctx context.Context, user models.User) error {
	email := repository.NormalizeEmail(user.Email)

	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		current, err := getUser(tx, user.ID)
		if err != nil {
			return err
		}

		byEmail := tx.Bucket(bucketUsersByEmail)
		if email != current.Email {
			if byEmail.Get([]byte(email)) != nil {
				return repository.ErrEmailTaken
			}
			if err := byEmail.Delete([]byte(current.Email)); err != nil {
				return err
			}
			if err := byEmail.Put([]byte(email), []byte(user.ID)); err != nil {
				return err
			}
		}

		current.Email = email
		current.FirstName = user.FirstName
		current.LastName = user.LastName
		current.Birthdate = user.Birthdate
		current.UpdatedAt = time.Now().UTC()
		return putDoc(tx.Bucket(bucketUsers), current.ID, toUserDoc(current))
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	return r.mutate(ctx, id, func(u *models.User) {
		u.PasswordHash = hash
	})
}

func (r *UserRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	return r.mutate(ctx, id, func(u *models.User) {
		u.IsAdmin = isAdmin
	})
}

func (r *UserRepository) mutate(ctx context.Context, id string, fn func(u *models.User)) error {
	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		user, err := getUser(tx, id)
		if err != nil {
			return err
		}
		fn(&user)
		user.UpdatedAt = time.Now().UTC()
		return putDoc(tx.Bucket(bucketUsers), user.ID, toUserDoc(user))
	})
}

// Delete cascades inside a single transaction: the user's flats (with their
// favorites and photos), the user's own favorites, and every message the
// user sent or received. Other messages about removed flats keep their
// content but lose the flat reference.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		user, err := getUser(tx, id)
		if err != nil {
			return err
		}

		flatIDs, err := flatIDsByOwner(tx, id)
		if err != nil {
			return err
		}
		for _, flatID := range flatIDs {
			if err := deleteFlatTx(tx, flatID); err != nil {
				return err
			}
		}

		if err := deleteFavoritesOfUser(tx, id); err != nil {
			return err
		}
		if err := deleteMessagesOfUser(tx, id); err != nil {
			return err
		}

		if err := tx.Bucket(bucketUsersByEmail).Delete([]byte(user.Email)); err != nil {
			return err
		}
		return tx.Bucket(bucketUsers).Delete([]byte(id))
	})
}

func getUser(tx *bbolt.Tx, id string) (models.User, error) {
	var doc userDoc
	found, err := getDoc(tx.Bucket(bucketUsers), id, &doc)
	if err != nil {
		return models.User{}, err
	}
	if !found {
		return models.User{}, repository.ErrUserNotFound
	}
	return doc.model(), nil
}
