package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"flatfinder/internal/models"
	"flatfinder/internal/queue"
	"flatfinder/internal/repository"
	"flatfinder/internal/security"
)

// TaskPublisher hands background work to the worker.
type TaskPublisher interface {
	Publish(ctx context.Context, task queue.Task) error
}

type UserService struct {
	users  repository.UserRepository
	flats  repository.FlatRepository
	tasks  TaskPublisher
	params security.Argon2Params
	log    zerolog.Logger
}

func NewUserService(
	users repository.UserRepository,
	flats repository.FlatRepository,
	tasks TaskPublisher,
	params security.Argon2Params,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:  users,
		flats:  flats,
		tasks:  tasks,
		params: params,
		log:    log,
	}
}

func (s *UserService) Get(ctx context.Context, actor security.Identity, id string) (models.User, error) {
	if !actor.CanActOn(id) {
		return models.User{}, ErrForbidden
	}
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, actor security.Identity, page Page) ([]models.User, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	return s.users.List(ctx, page.Limit(), page.Offset())
}

// ProfileInput is a partial update; nil fields keep their stored value.
type ProfileInput struct {
	FirstName *string `json:"firstName" validate:"omitnil,min=1"`
	LastName  *string `json:"lastName" validate:"omitnil,min=1"`
	Birthdate *string `json:"birthdate"`
	Email     *string `json:"email" validate:"omitnil,email"`
}

func (s *UserService) UpdateProfile(ctx context.Context, actor security.Identity, id string, input ProfileInput) (models.User, error) {
	if !actor.CanActOn(id) {
		return models.User{}, ErrForbidden
	}

	trim(input.FirstName)
	trim(input.LastName)
	trim(input.Email)

	extra := map[string]string{}
	var birthdate time.Time
	if input.Birthdate != nil {
		var ok bool
		if birthdate, ok = parseDate(*input.Birthdate); !ok {
			extra["birthdate"] = "must be a date (YYYY-MM-DD)"
		} else if birthdate.After(time.Now()) {
			extra["birthdate"] = "must be in the past"
		}
	}
	if err := validateStruct("Invalid profile.", input, extra); err != nil {
		return models.User{}, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Birthdate != nil {
		user.Birthdate = birthdate
	}
	if input.Email != nil {
		user.Email = repository.NormalizeEmail(*input.Email)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return models.User{}, err
	}
	return s.users.GetByID(ctx, id)
}

type PasswordInput struct {
	Password        string `json:"password" validate:"required,min=6"`
	CurrentPassword string `json:"currentPassword"`
}

// ChangePassword requires the current password from the account holder.
// Admins changing someone else's password reset it without one.
func (s *UserService) ChangePassword(ctx context.Context, actor security.Identity, id string, input PasswordInput) error {
	if !actor.CanActOn(id) {
		return ErrForbidden
	}
	if err := validateStruct("Invalid password.", input, nil); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if actor.UserID == id {
		if input.CurrentPassword == "" {
			return invalid("Invalid password.", "currentPassword", "is required")
		}
		ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", id).Msg("stored password hash unreadable")
		}
		if !ok {
			return invalid("Invalid password.", "currentPassword", "is incorrect")
		}
	}

	hash, err := security.HashPasswordWithParams(input.Password, s.params)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}

	s.log.Info().Str("user_id", id).Str("actor_id", actor.UserID).Msg("password changed")
	return nil
}

func (s *UserService) SetAdmin(ctx context.Context, actor security.Identity, id string, isAdmin bool) (models.User, error) {
	if !actor.IsAdmin {
		return models.User{}, ErrForbidden
	}
	if err := s.users.SetAdmin(ctx, id, isAdmin); err != nil {
		return models.User{}, err
	}
	s.log.Info().Str("user_id", id).Str("actor_id", actor.UserID).Bool("is_admin", isAdmin).Msg("admin flag changed")
	return s.users.GetByID(ctx, id)
}

// Delete removes the account and everything it owns. Photo objects of the
// removed flats are purged by the worker.
func (s *UserService) Delete(ctx context.Context, actor security.Identity, id string) error {
	if !actor.CanActOn(id) {
		return ErrForbidden
	}

	owned, err := s.flats.List(ctx, repository.FlatFilter{OwnerID: id})
	if err != nil {
		return fmt.Errorf("list owned flats: %w", err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	for _, flat := range owned {
		enqueuePurge(ctx, s.tasks, s.log, flat.ID)
	}
	s.log.Info().Str("user_id", id).Str("actor_id", actor.UserID).Int("flats", len(owned)).Msg("user deleted")
	return nil
}

// enqueuePurge is best effort: the nightly sweep catches anything missed.
func enqueuePurge(ctx context.Context, tasks TaskPublisher, log zerolog.Logger, flatID string) {
	if tasks == nil {
		return
	}
	if err := tasks.Publish(ctx, queue.PurgePhotos(flatID)); err != nil {
		log.Warn().Err(err).Str("flat_id", flatID).Msg("enqueue photo purge failed")
	}
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
