package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"flatfinder/internal/config"
	"flatfinder/internal/ids"
	"flatfinder/internal/models"
	"flatfinder/internal/repository"
	"flatfinder/internal/security"
)

// TokenRevoker remembers logged-out token ids until they would have expired.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type AuthService struct {
	users       repository.UserRepository
	revocations TokenRevoker
	cfg         config.SecurityConfig
	params      security.Argon2Params
	log         zerolog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(
	users repository.UserRepository,
	revocations TokenRevoker,
	cfg config.SecurityConfig,
	params security.Argon2Params,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		revocations: revocations,
		cfg:         cfg,
		params:      params,
		log:         log,
	}
}

type RegisterInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Birthdate string `json:"birthdate" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

const msgFieldsRequired = "All fields are required."

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = repository.NormalizeEmail(input.Email)

	extra := map[string]string{}
	birthdate, ok := parseDate(input.Birthdate)
	if input.Birthdate != "" {
		if !ok {
			extra["birthdate"] = "must be a date (YYYY-MM-DD)"
		} else if birthdate.After(time.Now()) {
			extra["birthdate"] = "must be in the past"
		}
	}
	if err := validateStruct(msgFieldsRequired, input, extra); err != nil {
		return models.User{}, err
	}

	hash, err := security.HashPasswordWithParams(input.Password, s.params)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Birthdate:    birthdate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

// Login answers ErrInvalidCredentials for an unknown email, a wrong password
// and an unreadable stored hash alike.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Spend the same hashing time as for a real account.
			_, _ = security.VerifyPassword(input.Password, s.dummy())
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, claims, err := security.GenerateAccessToken(s.cfg.JWTSecret, user.ID, s.cfg.JWTTTL)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

// Logout revokes the token the caller authenticated with.
func (s *AuthService) Logout(ctx context.Context, actor security.Identity) error {
	if actor.TokenID == "" {
		return nil
	}
	return s.revocations.Revoke(ctx, actor.TokenID, time.Until(actor.ExpiresAt))
}

// PromoteAdmins grants the admin flag to every registered account in emails.
// Unknown emails are skipped so the list can name accounts not created yet.
func (s *AuthService) PromoteAdmins(ctx context.Context, emails []string) error {
	for _, email := range emails {
		user, err := s.users.FindByEmail(ctx, email)
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Warn().Str("email", email).Msg("admin email has no account yet")
			continue
		}
		if err != nil {
			return fmt.Errorf("promote %s: %w", email, err)
		}
		if user.IsAdmin {
			continue
		}
		if err := s.users.SetAdmin(ctx, user.ID, true); err != nil {
			return fmt.Errorf("promote %s: %w", email, err)
		}
		s.log.Info().Str("user_id", user.ID).Msg("user promoted to admin")
	}
	return nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := security.HashPasswordWithParams(ids.New(), s.params)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
