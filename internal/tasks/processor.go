// Package tasks executes background work the API hands to the worker.
package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"flatfinder/internal/queue"
	"flatfinder/internal/storage"
)

// PrefixRemover deletes every stored object under a key prefix.
type PrefixRemover interface {
	RemovePrefix(ctx context.Context, prefix string) (int, error)
}

type Processor struct {
	objects PrefixRemover
	logger  zerolog.Logger
}

func NewProcessor(objects PrefixRemover, logger zerolog.Logger) *Processor {
	return &Processor{
		objects: objects,
		logger:  logger,
	}
}

// Handle never returns an error for payloads that can never succeed; those
// are logged and acknowledged so they do not circulate forever.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := queue.DecodeTask(msg.Values)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed task")
		return nil
	}

	switch task.Type {
	case queue.TypePurgePhotos:
		return p.purgePhotos(ctx, task)
	default:
		p.logger.Warn().Str("type", task.Type).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) purgePhotos(ctx context.Context, task queue.Task) error {
	if task.FlatID == "" {
		p.logger.Warn().Msg("purge_photos without flat id")
		return nil
	}

	removed, err := p.objects.RemovePrefix(ctx, storage.FlatPrefix(task.FlatID))
	if err != nil {
		return fmt.Errorf("purge photos of flat %s: %w", task.FlatID, err)
	}
	p.logger.Info().
		Str("flat_id", task.FlatID).
		Int("removed", removed).
		Msg("flat photos purged")
	return nil
}
