package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_reporting_system/internal/geo"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/internal/service"
)

const (
	reportCacheTTL = 5 * time.Minute

	reportColumns = `id, reporter_id, type, description, latitude, longitude, created_at, confirmed`
)

type ReportRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewReportRepository(db *pgxpool.Pool, redisClient *redis.Client) service.ReportRepository {
	return &ReportRepository{
		db:          db,
		redisClient: redisClient,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	report := &models.Report{}
	var reportType string
	err := row.Scan(
		&report.ID,
		&report.ReporterID,
		&reportType,
		&report.Description,
		&report.Latitude,
		&report.Longitude,
		&report.CreatedAt,
		&report.Confirmed,
	)
	if err != nil {
		return nil, err
	}
	report.Type = models.ReportType(reportType)
	return report, nil
}

func collectReports(rows pgx.Rows) ([]*models.Report, error) {
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error report rows iteration: %w", err)
	}
	return reports, nil
}

// Create сохраняет новый отчет, ID генерирует база
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (reporter_id, type, description, latitude, longitude, created_at, confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id;
	`
	err := r.db.QueryRow(ctx, query,
		report.ReporterID,
		string(report.Type),
		report.Description,
		report.Latitude,
		report.Longitude,
		report.CreatedAt,
		report.Confirmed,
	).Scan(&report.ID)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetByID возвращает отчет по его UUID
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1;`

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report with id %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report by id: %w", err)
	}
	return report, nil
}

// ListReports возвращает список отчетов с пагинацией, новые первыми
func (r *ReportRepository) ListReports(ctx context.Context, page, pageSize int) ([]*models.Report, error) {
	offset := (page - 1) * pageSize

	query := `
		SELECT ` + reportColumns + `
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return collectReports(rows)
}

// Confirm выставляет флаг confirmed
func (r *ReportRepository) Confirm(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE reports SET confirmed = TRUE WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to confirm report: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("report with id %s not found for confirm: %w", id, service.ErrNotFound)
	}
	return nil
}

// FindReportsInWindow выбирает отчеты в прямоугольнике не старше since
func (r *ReportRepository) FindReportsInWindow(ctx context.Context, box geo.BoundingBox, since time.Time) ([]*models.Report, error) {
	lonCondition := `longitude BETWEEN $4 AND $5`
	if box.WrapsAntimeridian() {
		lonCondition = `(longitude >= $4 OR longitude <= $5)`
	}

	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE
			created_at >= $1
			AND latitude BETWEEN $2 AND $3
			AND ` + lonCondition + `
		ORDER BY created_at ASC;
	`
	rows, err := r.db.Query(ctx, query, since, box.MinLat(), box.MaxLat(), box.MinLon(), box.MaxLon())
	if err != nil {
		return nil, fmt.Errorf("failed to find reports in window: %w", err)
	}
	return collectReports(rows)
}

// CountReportsSince возвращает количество отчетов, полученных после since
func (r *ReportRepository) CountReportsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE created_at >= $1;`, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

func reportCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("report:%s", id.String())
}

// GetReportFromCache пытается получить отчет из Redis. Промах кеша - (nil, nil).
func (r *ReportRepository) GetReportFromCache(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	val, err := r.redisClient.Get(ctx, reportCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report from cache: %w", err)
	}

	report := &models.Report{}
	if err := json.Unmarshal(val, report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report from cache: %w", err)
	}
	return report, nil
}

// SetReportCache сохраняет отчет в Redis
func (r *ReportRepository) SetReportCache(ctx context.Context, report *models.Report) error {
	val, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, reportCacheKey(report.ID), val, reportCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set report in cache: %w", err)
	}
	return nil
}

// InvalidateReportCache удаляет отчет из Redis кеша
func (r *ReportRepository) InvalidateReportCache(ctx context.Context, id uuid.UUID) error {
	if err := r.redisClient.Del(ctx, reportCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate report cache: %w", err)
	}
	return nil
}
