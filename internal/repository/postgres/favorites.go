package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"flatfinder/internal/models"
	"flatfinder/internal/repository"
)

type FavoriteRepository struct {
	pool *pgxpool.Pool
}

func NewFavoriteRepository(pool *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

func (r *FavoriteRepository) Add(ctx context.Context, userID, flatID string) error {
	const query = `INSERT INTO favorites (user_id, flat_id, created_at) VALUES ($1, $2, NOW())`

	_, err := r.pool.Exec(ctx, query, userID, flatID)
	switch pgErrorCode(err) {
	case codeUniqueViolation:
		return repository.ErrFavoriteExists
	case codeForeignKeyViolation:
		return repository.ErrFlatNotFound
	}
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, flatID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND flat_id = $2`, userID, flatID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrFavoriteNotFound
	}
	return nil
}

func (r *FavoriteRepository) ListFlats(ctx context.Context, userID string) ([]models.Flat, error) {
	const query = `
		SELECT f.id, f.owner_id, f.city, f.street_name, f.street_number, f.area_size, f.has_ac,
		       f.year_built, f.rent_price, f.date_available, f.created_at, f.updated_at
		FROM favorites fav
		JOIN flats f ON f.id = fav.flat_id
		WHERE fav.user_id = $1
		ORDER BY fav.created_at, f.id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()
	return collectFlats(rows)
}
