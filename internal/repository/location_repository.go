package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// LocationRepository reads the registered check-in codes for work placements
// and class sessions.
type LocationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Location, error)
}

type locationRepository struct {
	pool *pgxpool.Pool
}

// NewLocationRepository returns a Postgres-backed implementation.
func NewLocationRepository(pool *pgxpool.Pool) LocationRepository {
	return &locationRepository{pool: pool}
}

func (r *locationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	const query = `
        SELECT id, name, location_type, qr_code, active, created_at
        FROM locations WHERE id=$1`

	var loc domain.Location
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&loc.ID,
		&loc.Name,
		&loc.Type,
		&loc.QRCode,
		&loc.Active,
		&loc.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &loc, nil
}
