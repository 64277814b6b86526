// Package jobs runs periodic maintenance inside the API process.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"flatfinder/internal/models"
	"flatfinder/internal/queue"
	"flatfinder/internal/repository"
)

type FlatIDLister interface {
	ListFlatIDs(ctx context.Context) ([]string, error)
}

type FlatLookup interface {
	GetByID(ctx context.Context, id string) (models.Flat, error)
}

type TaskPublisher interface {
	Publish(ctx context.Context, task queue.Task) error
}

type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	objects   FlatIDLister
	flats     FlatLookup
	publisher TaskPublisher
	log       zerolog.Logger
	timeout   time.Duration
}

func NewScheduler(schedule string, objects FlatIDLister, flats FlatLookup, publisher TaskPublisher, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:      c,
		schedule:  schedule,
		objects:   objects,
		flats:     flats,
		publisher: publisher,
		log:       log,
		timeout:   5 * time.Minute,
	}
}

// Start registers the orphan photo sweep. An empty schedule disables it.
func (s *Scheduler) Start() error {
	if s.schedule == "" || s.objects == nil || s.publisher == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return fmt.Errorf("schedule photo sweep: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	enqueued, err := s.SweepOrphanPhotos(ctx)
	if err != nil {
		s.log.Error().Err(err).Int("enqueued", enqueued).Msg("photo sweep failed")
		return
	}
	s.log.Info().Int("enqueued", enqueued).Msg("photo sweep finished")
}

// SweepOrphanPhotos enqueues a purge for every photo prefix whose flat no
// longer exists. It returns how many purges were enqueued.
func (s *Scheduler) SweepOrphanPhotos(ctx context.Context) (int, error) {
	flatIDs, err := s.objects.ListFlatIDs(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, id := range flatIDs {
		_, err := s.flats.GetByID(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrFlatNotFound) {
			return enqueued, fmt.Errorf("lookup flat %s: %w", id, err)
		}
		if err := s.publisher.Publish(ctx, queue.PurgePhotos(id)); err != nil {
			return enqueued, err
		}
		enqueued++
	}
	return enqueued, nil
}
