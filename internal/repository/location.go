package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/internal/service"
)

type LocationRepository struct {
	db *pgxpool.Pool
}

func NewLocationRepository(db *pgxpool.Pool) service.LocationRepository {
	return &LocationRepository{db: db}
}

// UpsertLocation обновляет единственную запись пользователя.
// При гонке побеждает запись с более поздним observed_at.
func (r *LocationRepository) UpsertLocation(ctx context.Context, ping *models.LocationPing) error {
	query := `
		INSERT INTO user_locations (user_id, latitude, longitude, observed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			observed_at = EXCLUDED.observed_at
		WHERE user_locations.observed_at <= EXCLUDED.observed_at;
	`
	if _, err := r.db.Exec(ctx, query, ping.ReporterID, ping.Latitude, ping.Longitude, ping.ObservedAt); err != nil {
		return fmt.Errorf("failed to upsert user location: %w", err)
	}
	return nil
}

// CountActiveReporters возвращает количество пользователей, присылавших координаты после since
func (r *LocationRepository) CountActiveReporters(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_locations WHERE observed_at >= $1;`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active reporters: %w", err)
	}
	return count, nil
}
