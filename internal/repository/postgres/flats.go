package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flatfinder/internal/models"
	"flatfinder/internal/repository"
)

type FlatRepository struct {
	pool *pgxpool.Pool
}

func NewFlatRepository(pool *pgxpool.Pool) *FlatRepository {
	return &FlatRepository{pool: pool}
}

const flatColumns = `id, owner_id, city, street_name, street_number, area_size, has_ac, year_built, rent_price, date_available, created_at, updated_at`

var flatSortColumns = map[repository.FlatSort]string{
	repository.SortCreatedAt:     "created_at",
	repository.SortCity:          "lower(city)",
	repository.SortRentPrice:     "rent_price",
	repository.SortAreaSize:      "area_size",
	repository.SortDateAvailable: "date_available",
}

func (r *FlatRepository) Create(ctx context.Context, flat models.Flat) error {
	const query = `
		INSERT INTO flats (
			id, owner_id, city, street_name, street_number, area_size, has_ac, year_built, rent_price, date_available, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
		)
	`
	_, err := r.pool.Exec(ctx, query,
		flat.ID,
		flat.OwnerID,
		flat.City,
		flat.StreetName,
		flat.StreetNumber,
		flat.AreaSize,
		flat.HasAC,
		flat.YearBuilt,
		flat.RentPrice,
		flat.DateAvailable,
		flat.CreatedAt,
	)
	if pgErrorCode(err) == codeForeignKeyViolation {
		return repository.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert flat: %w", err)
	}
	return nil
}

func (r *FlatRepository) GetByID(ctx context.Context, id string) (models.Flat, error) {
	query := `SELECT ` + flatColumns + ` FROM flats WHERE id = $1`
	flat, err := scanFlat(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Flat{}, repository.ErrFlatNotFound
	}
	return flat, err
}

func (r *FlatRepository) List(ctx context.Context, filter repository.FlatFilter) ([]models.Flat, error) {
	query, args := buildFlatQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list flats: %w", err)
	}
	defer rows.Close()
	return collectFlats(rows)
}

func buildFlatQuery(filter repository.FlatFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.City != "" {
		add("lower(city) = lower($%d)", strings.TrimSpace(filter.City))
	}
	if filter.OwnerID != "" {
		add("owner_id = $%d", filter.OwnerID)
	}
	if filter.MinPrice > 0 {
		add("rent_price >= $%d", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		add("rent_price <= $%d", filter.MaxPrice)
	}
	if filter.MinArea > 0 {
		add("area_size >= $%d", filter.MinArea)
	}
	if filter.MaxArea > 0 {
		add("area_size <= $%d", filter.MaxArea)
	}
	if !filter.AvailableBy.IsZero() {
		add("date_available <= $%d", filter.AvailableBy)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + flatColumns + ` FROM flats`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	column, ok := flatSortColumns[filter.SortBy]
	if !ok {
		column = flatSortColumns[repository.SortCreatedAt]
	}
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", column, direction, direction)

	args = append(args, limitOrAll(filter.Limit), filter.Offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return b.String(), args
}

func (r *FlatRepository) Update(ctx context.Context, flat models.Flat) error {
	const query = `
		UPDATE flats
		SET city = $2, street_name = $3, street_number = $4, area_size = $5, has_ac = $6,
		    year_built = $7, rent_price = $8, date_available = $9, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		flat.ID,
		flat.City,
		flat.StreetName,
		flat.StreetNumber,
		flat.AreaSize,
		flat.HasAC,
		flat.YearBuilt,
		flat.RentPrice,
		flat.DateAvailable,
	)
	if err != nil {
		return fmt.Errorf("update flat: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrFlatNotFound
	}
	return nil
}

func (r *FlatRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM flats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete flat: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrFlatNotFound
	}
	return nil
}

func collectFlats(rows pgx.Rows) ([]models.Flat, error) {
	flats := make([]models.Flat, 0)
	for rows.Next() {
		flat, err := scanFlat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flat: %w", err)
		}
		flats = append(flats, flat)
	}
	return flats, rows.Err()
}

func scanFlat(row rowScanner) (models.Flat, error) {
	var flat models.Flat
	err := row.Scan(
		&flat.ID,
		&flat.OwnerID,
		&flat.City,
		&flat.StreetName,
		&flat.StreetNumber,
		&flat.AreaSize,
		&flat.HasAC,
		&flat.YearBuilt,
		&flat.RentPrice,
		&flat.DateAvailable,
		&flat.CreatedAt,
		&flat.UpdatedAt,
	)
	return flat, err
}
