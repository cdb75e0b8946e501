package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/internal/observability"
	"github.com/shenikar/incident_reporting_system/internal/webhook"
	"github.com/sirupsen/logrus"
)

type reportService struct {
	reports   ReportRepository
	locations LocationRepository
	threats   ThreatChecker
	publisher webhook.Publisher
	logger    *logrus.Logger
	cfg       *config.Config
	clock     clockwork.Clock
	metrics   *observability.Metrics
}

// Option настраивает reportService
type Option func(*reportService)

// WithClock подменяет источник времени
func WithClock(clock clockwork.Clock) Option {
	return func(s *reportService) { s.clock = clock }
}

// WithMetrics задает метрики
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *reportService) { s.metrics = metrics }
}

func NewReportService(
	reports ReportRepository,
	locations LocationRepository,
	threats ThreatChecker,
	publisher webhook.Publisher,
	logger *logrus.Logger,
	cfg *config.Config,
	opts ...Option,
) ReportService {
	s := &reportService{
		reports:   reports,
		locations: locations,
		threats:   threats,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetricsForTesting()
	}
	if s.publisher == nil {
		s.publisher = webhook.NopPublisher{}
	}
	return s
}

// RecordLocation сохраняет последнее местоположение пользователя.
// observedAt выставляется временем получения запроса.
func (s *reportService) RecordLocation(ctx context.Context, reporterID string, lat, lon float64) (*models.LocationPing, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "report",
		"method":  "RecordLocation",
		"user_id": reporterID,
	})

	if err := validateReporter(reporterID); err != nil {
		s.metrics.ValidationFails.WithLabelValues("record_location").Inc()
		return nil, err
	}
	if err := validateCoordinates(lat, lon); err != nil {
		s.metrics.ValidationFails.WithLabelValues("record_location").Inc()
		return nil, err
	}

	ping := &models.LocationPing{
		ReporterID: strings.TrimSpace(reporterID),
		Latitude:   lat,
		Longitude:  lon,
		ObservedAt: s.clock.Now().UTC(),
	}
	if err := s.locations.UpsertLocation(ctx, ping); err != nil {
		log.WithError(err).Error("Failed to upsert location in repository")
		return nil, fmt.Errorf("service: could not record location: %w", err)
	}

	s.metrics.LocationPings.Inc()
	log.Debug("Location recorded")
	return ping, nil
}

// RecordReport сохраняет новый отчет. Бэкенд назначает собственный ID и время получения;
// повторная отправка того же отчета считается новым событием.
func (s *reportService) RecordReport(ctx context.Context, report *models.Report) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "report",
		"method":  "RecordReport",
		"user_id": report.ReporterID,
		"type":    report.Type,
	})
	log.Info("Attempting to record a new report")

	if err := validateReport(report); err != nil {
		s.metrics.ValidationFails.WithLabelValues("record_report").Inc()
		log.WithError(err).Warn("Report rejected by validation")
		return err
	}

	report.ID = uuid.Nil
	report.ReporterID = strings.TrimSpace(report.ReporterID)
	report.CreatedAt = s.clock.Now().UTC()
	if err := s.reports.Create(ctx, report); err != nil {
		log.WithError(err).Error("Failed to create report in repository")
		return fmt.Errorf("service: could not create report: %w", err)
	}
	s.metrics.ReportsRecorded.WithLabelValues(string(report.Type)).Inc()

	// Вебхук не влияет на результат приема отчета
	if err := s.publisher.Publish(ctx, webhook.NewReportEvent(report)); err != nil {
		log.WithError(err).Warn("Failed to publish report webhook event")
	}

	log.WithField("report_id", report.ID).Info("Report recorded successfully")
	return nil
}

// GetReport получает отчет по ID, сначала из кеша
func (s *reportService) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "GetReport",
		"report_id": id,
	})

	cached, err := s.reports.GetReportFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read report from cache")
	}
	if cached != nil {
		return cached, nil
	}

	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get report in repository")
		return nil, fmt.Errorf("service: could not get report: %w", err)
	}

	if err := s.reports.SetReportCache(ctx, report); err != nil {
		log.WithError(err).Warn("Failed to cache report")
	}
	return report, nil
}

// ListReports возвращает список отчетов с пагинацией
func (s *reportService) ListReports(ctx context.Context, page, pageSize int) ([]*models.Report, error) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "ListReports",
		"page":      page,
		"page_size": pageSize,
	})

	reports, err := s.reports.ListReports(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list reports from repository")
		return nil, fmt.Errorf("service: could not list reports: %w", err)
	}

	log.WithField("count", len(reports)).Debug("Reports listed successfully")
	return reports, nil
}

// ConfirmReport выставляет флаг confirmed. Это единственное изменение отчета после создания.
func (s *reportService) ConfirmReport(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "ConfirmReport",
		"report_id": id,
	})
	log.Info("Attempting to confirm report")

	if err := s.reports.Confirm(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.WithError(err).Warn("Attempted to confirm a non-existent report")
		} else {
			log.WithError(err).Error("Failed to confirm report in repository")
		}
		return fmt.Errorf("service: could not confirm report: %w", err)
	}

	if err := s.reports.InvalidateReportCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate report cache")
	}

	log.Info("Report confirmed successfully")
	return nil
}

// GetStats считает активность за окно STATS_TIME_WINDOW_MINUTES
func (s *reportService) GetStats(ctx context.Context) (*models.Stats, error) {
	window := s.cfg.StatsTimeWindowMinutes
	since := s.clock.Now().Add(-time.Duration(window) * time.Minute)

	reporters, err := s.locations.CountActiveReporters(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("service: could not count active reporters: %w", err)
	}
	reports, err := s.reports.CountReportsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("service: could not count reports: %w", err)
	}

	return &models.Stats{
		ActiveReporters: reporters,
		ReportsReceived: reports,
		WindowMinutes:   window,
	}, nil
}

func validateReporter(reporterID string) error {
	if strings.TrimSpace(reporterID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	return nil
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: coordinates must be finite numbers", ErrInvalidInput)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidInput)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidInput)
	}
	return nil
}

func validateReport(report *models.Report) error {
	if report == nil {
		return fmt.Errorf("%w: report is required", ErrInvalidInput)
	}
	if err := validateReporter(report.ReporterID); err != nil {
		return err
	}
	if !report.Type.Valid() {
		return fmt.Errorf("%w: unknown report type %q", ErrInvalidInput, report.Type)
	}
	return validateCoordinates(report.Latitude, report.Longitude)
}
