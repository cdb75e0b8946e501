// Package submit отправляет отчет сразу или ставит его в офлайн-очередь.
package submit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/client"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// Status - итог отправки
type Status string

const (
	StatusSent   Status = "SENT"
	StatusQueued Status = "QUEUED"
	StatusFailed Status = "FAILED"
)

// Result - итог Submit. Reason заполняется для QUEUED и FAILED.
type Result struct {
	Status Status        `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Report models.Report `json:"report"`
}

type Sender interface {
	SubmitReport(ctx context.Context, report models.Report) error
}

type Enqueuer interface {
	Enqueue(ctx context.Context, report models.Report) error
}

// Connectivity - состояние связи. SetOnline(false) вызывается, когда бэкенд оказался недоступен.
type Connectivity interface {
	Online() bool
	SetOnline(online bool)
}

type Identity interface {
	GetOrCreateID(ctx context.Context) string
}

type Submitter struct {
	sender   Sender
	queue    Enqueuer
	conn     Connectivity
	identity Identity
	clock    clockwork.Clock
	logger   *logrus.Logger
	newID    func() (uuid.UUID, error)
}

func New(sender Sender, queue Enqueuer, conn Connectivity, identity Identity, clock clockwork.Clock, logger *logrus.Logger) *Submitter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Submitter{
		sender:   sender,
		queue:    queue,
		conn:     conn,
		identity: identity,
		clock:    clock,
		logger:   logger,
		newID:    uuid.NewV7,
	}
}

// Submit отправляет отчет. Без связи отчет сразу уходит в очередь, без сетевых вызовов.
// Любая ошибка сети или ответ не 2xx также ставят отчет в очередь.
// FAILED возвращается только для некорректного отчета или если очередь недоступна.
func (s *Submitter) Submit(ctx context.Context, report models.Report) Result {
	log := s.logger.WithField("method", "Submit")

	if err := s.prepare(ctx, &report); err != nil {
		log.WithError(err).Warn("Report rejected locally")
		return Result{Status: StatusFailed, Reason: err.Error(), Report: report}
	}
	log = log.WithField("report_id", report.ID)

	if !s.conn.Online() {
		return s.enqueue(ctx, log, report, "offline")
	}

	err := s.sender.SubmitReport(ctx, report)
	if err == nil {
		log.Info("Report sent")
		return Result{Status: StatusSent, Report: report}
	}

	var statusErr *client.StatusError
	switch {
	case errors.Is(err, client.ErrUnreachable):
		log.WithError(err).Info("Backend unreachable, queueing report")
		s.conn.SetOnline(false)
	case errors.As(err, &statusErr):
		log.WithError(err).Warn("Backend rejected report, queueing")
	default:
		log.WithError(err).Warn("Failed to send report, queueing")
	}
	return s.enqueue(ctx, log, report, err.Error())
}

func (s *Submitter) enqueue(ctx context.Context, log *logrus.Entry, report models.Report, reason string) Result {
	if err := s.queue.Enqueue(ctx, report); err != nil {
		log.WithError(err).Error("Failed to queue report")
		return Result{
			Status: StatusFailed,
			Reason: fmt.Sprintf("could not queue report (%s): %v", reason, err),
			Report: report,
		}
	}
	return Result{Status: StatusQueued, Reason: reason, Report: report}
}

// prepare заполняет ID, автора и время создания и проверяет отчет
func (s *Submitter) prepare(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		id, err := s.newID()
		if err != nil {
			return fmt.Errorf("could not generate report id: %w", err)
		}
		report.ID = id
	}
	if strings.TrimSpace(report.ReporterID) == "" && s.identity != nil {
		report.ReporterID = s.identity.GetOrCreateID(ctx)
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.clock.Now().UTC()
	}

	if strings.TrimSpace(report.ReporterID) == "" {
		return errors.New("reporter id is required")
	}
	if !report.Type.Valid() {
		return fmt.Errorf("unknown report type %q", report.Type)
	}
	if math.IsNaN(report.Latitude) || math.IsNaN(report.Longitude) ||
		math.IsInf(report.Latitude, 0) || math.IsInf(report.Longitude, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if report.Latitude < -90 || report.Latitude > 90 || report.Longitude < -180 || report.Longitude > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}
