// Package postgres implements the repository contracts on PostgreSQL via pgx.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"flatfinder/internal/config"
	"flatfinder/internal/repository"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// NewStore wires every repository to one pool. The caller owns the pool.
func NewStore(pool *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Backend:   config.BackendPostgres,
		Users:     NewUserRepository(pool),
		Flats:     NewFlatRepository(pool),
		Favorites: NewFavoriteRepository(pool),
		Messages:  NewMessageRepository(pool),
		Photos:    NewPhotoRepository(pool),
		Ping:      pool.Ping,
		Close: func() error {
			pool.Close()
			return nil
		},
	}
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
