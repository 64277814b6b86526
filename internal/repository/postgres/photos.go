package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flatfinder/internal/models"
	"flatfinder/internal/repository"
)

type PhotoRepository struct {
	pool *pgxpool.Pool
}

func NewPhotoRepository(pool *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

const photoColumns = `id, flat_id, owner_id, bucket, object_key, format, size_bytes, checksum, signature, created_at`

func (r *PhotoRepository) Create(ctx context.Context, photo models.Photo) error {
	const query = `
		INSERT INTO photos (
			id, flat_id, owner_id, bucket, object_key, format, size_bytes, checksum, signature, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`
	_, err := r.pool.Exec(ctx, query,
		photo.ID,
		photo.FlatID,
		photo.OwnerID,
		photo.Bucket,
		photo.ObjectKey,
		photo.Format,
		photo.SizeBytes,
		photo.Checksum,
		photo.Signature,
		photo.CreatedAt,
	)
	if pgErrorCode(err) == codeForeignKeyViolation {
		return repository.ErrFlatNotFound
	}
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

func (r *PhotoRepository) GetByID(ctx context.Context, id string) (models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	photo, err := scanPhoto(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Photo{}, repository.ErrPhotoNotFound
	}
	return photo, err
}

func (r *PhotoRepository) ListByFlat(ctx context.Context, flatID string) ([]models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE flat_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, flatID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	photos := make([]models.Photo, 0)
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrPhotoNotFound
	}
	return nil
}

func scanPhoto(row rowScanner) (models.Photo, error) {
	var photo models.Photo
	err := row.Scan(
		&photo.ID,
		&photo.FlatID,
		&photo.OwnerID,
		&photo.Bucket,
		&photo.ObjectKey,
		&photo.Format,
		&photo.SizeBytes,
		&photo.Checksum,
		&photo.Signature,
		&photo.CreatedAt,
	)
	return photo, err
}
