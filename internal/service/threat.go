package service

import (
	"context"
	"fmt"

	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// CheckThreat проверяет, подтверждена ли угроза рядом с пользователем.
// Только чтение: ни отчеты, ни местоположение не изменяются.
func (s *reportService) CheckThreat(ctx context.Context, reporterID string, lat, lon float64) (models.ThreatSignal, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "report",
		"method":  "CheckThreat",
		"user_id": reporterID,
	})

	if err := validateCoordinates(lat, lon); err != nil {
		s.metrics.ValidationFails.WithLabelValues("check_threat").Inc()
		return models.NoThreat(), err
	}

	signal, err := s.threats.CheckThreat(ctx, lat, lon)
	if err != nil {
		s.metrics.ThreatChecks.WithLabelValues("error").Inc()
		log.WithError(err).Error("Failed to check threat")
		return models.NoThreat(), fmt.Errorf("service: could not check threat: %w", err)
	}

	if signal.HasThreat {
		s.metrics.ThreatChecks.WithLabelValues("threat").Inc()
		log.WithFields(logrus.Fields{
			"type":  signal.Type,
			"count": signal.Count,
		}).Info("Threat confirmed near user")
	} else {
		s.metrics.ThreatChecks.WithLabelValues("clear").Inc()
		log.Debug("No threat near user")
	}
	return signal, nil
}
