package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_reporting_system/internal/corroboration"
	"github.com/shenikar/incident_reporting_system/internal/models"
)

//go:generate mockgen -source=service.go -destination=mocks/mock_service.go -package=mocks

var (
	// ErrInvalidInput - ошибка валидации входных данных, клиент не должен повторять запрос
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound - запись не найдена
	ErrNotFound = errors.New("not found")
)

// ReportRepository определяет контракт для работы с бд отчетов
type ReportRepository interface {
	corroboration.ReportFinder
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, page, pageSize int) ([]*models.Report, error)
	Confirm(ctx context.Context, id uuid.UUID) error
	CountReportsSince(ctx context.Context, since time.Time) (int, error)
	GetReportFromCache(ctx context.Context, id uuid.UUID) (*models.Report, error)
	SetReportCache(ctx context.Context, report *models.Report) error
	InvalidateReportCache(ctx context.Context, id uuid.UUID) error
}

// LocationRepository определяет контракт для хранения последних координат пользователей
type LocationRepository interface {
	UpsertLocation(ctx context.Context, ping *models.LocationPing) error
	CountActiveReporters(ctx context.Context, since time.Time) (int, error)
}

// ThreatChecker вычисляет сигнал угрозы для точки
type ThreatChecker interface {
	CheckThreat(ctx context.Context, lat, lon float64) (models.ThreatSignal, error)
}

// ReportService определяет контракт бизнес-логики приема отчетов и проверки угроз
type ReportService interface {
	RecordLocation(ctx context.Context, reporterID string, lat, lon float64) (*models.LocationPing, error)
	RecordReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, page, pageSize int) ([]*models.Report, error)
	ConfirmReport(ctx context.Context, id uuid.UUID) error
	CheckThreat(ctx context.Context, reporterID string, lat, lon float64) (models.ThreatSignal, error)
	GetStats(ctx context.Context) (*models.Stats, error)
}
