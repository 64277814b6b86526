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

type MessageRepository struct {
	db *DB
}

func (r *MessageRepository) Create(ctx context.Context, msg models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		if users.Get([]byte(msg.SenderID)) == nil || users.Get([]byte(msg.RecipientID)) == nil {
			return fmt.Errorf("insert message: %w", repository.ErrUserNotFound)
		}
		if msg.FlatID != nil && tx.Bucket(bucketFlats).Get([]byte(*msg.FlatID)) == nil {
			return repository.ErrFlatNotFound
		}
		return putDoc(tx.Bucket(bucketMessages), msg.ID, toMessageDoc(msg))
	})
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (models.Message, error) {
	var msg models.Message
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		msg, err = getMessage(tx, id)
		return err
	})
	return msg, err
}

func (r *MessageRepository) ListByRecipient(ctx context.Context, userID string, limit, offset int) ([]models.Message, error) {
	return r.list(ctx, limit, offset, func(m models.Message) bool { return m.RecipientID == userID })
}

func (r *MessageRepository) ListBySender(ctx context.Context, userID string, limit, offset int) ([]models.Message, error) {
	return r.list(ctx, limit, offset, func(m models.Message) bool { return m.SenderID == userID })
}

func (r *MessageRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		return forEachMessage(tx, func(m models.Message) error {
			if m.RecipientID == userID && !m.Read {
				count++
			}
			return nil
		})
	})
	return count, err
}

func (r *MessageRepository) MarkRead(ctx context.Context, id string) error {
	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		msg, err := getMessage(tx, id)
		if err != nil {
			return err
		}
		msg.Read = true
		return putDoc(tx.Bucket(bucketMessages), msg.ID, toMessageDoc(msg))
	})
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	return r.db.update(ctx, func(tx *bbolt.Tx) error {
		messages := tx.Bucket(bucketMessages)
		if messages.Get([]byte(id)) == nil {
			return repository.ErrMessageNotFound
		}
		return messages.Delete([]byte(id))
	})
}

// list returns matching messages newest first.
func (r *MessageRepository) list(ctx context.Context, limit, offset int, keep func(models.Message) bool) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	err := r.db.view(ctx, func(tx *bbolt.Tx) error {
		return forEachMessage(tx, func(m models.Message) error {
			if keep(m) {
				messages = append(messages, m)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID > messages[j].ID
		}
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
	return page(messages, limit, offset), nil
}

func getMessage(tx *bbolt.Tx, id string) (models.Message, error) {
	var doc messageDoc
	found, err := getDoc(tx.Bucket(bucketMessages), id, &doc)
	if err != nil {
		return models.Message{}, err
	}
	if !found {
		return models.Message{}, repository.ErrMessageNotFound
	}
	return doc.model(), nil
}

func forEachMessage(tx *bbolt.Tx, fn func(m models.Message) error) error {
	return tx.Bucket(bucketMessages).ForEach(func(k, v []byte) error {
		var doc messageDoc
		if err := json.Unmarshal(v, &doc); err != nil {
			return fmt.Errorf("decode message %s: %w", k, err)
		}
		return fn(doc.model())
	})
}

func deleteMessagesOfUser(tx *bbolt.Tx, userID string) error {
	var ids []string
	err := forEachMessage(tx, func(m models.Message) error {
		if m.SenderID == userID || m.RecipientID == userID {
			ids = append(ids, m.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	messages := tx.Bucket(bucketMessages)
	for _, id := range ids {
		if err := messages.Delete([]byte(id)); err != nil {
			return err
		}
	}
	return nil
}

// Writing to a bucket while ForEach walks it is undefined, so matches are
// collected first.
func detachMessagesFromFlat(tx *bbolt.Tx, flatID string) error {
	var detached []models.Message
	err := forEachMessage(tx, func(m models.Message) error {
		if m.FlatID != nil && *m.FlatID == flatID {
			m.FlatID = nil
			detached = append(detached, m)
		}
		return nil
	})
	if err != nil {
		return err
	}
	messages := tx.Bucket(bucketMessages)
	for _, m := range detached {
		if err := putDoc(messages, m.ID, toMessageDoc(m)); err != nil {
			return err
		}
	}
	return nil
}
