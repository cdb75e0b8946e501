// Package cooldown подавляет повторные оповещения об угрозе, на которую пользователь уже отреагировал.
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/device/storage"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultWindow = 24 * time.Hour

	keyPrefix = "cooldown:"
)

type Tracker struct {
	store  storage.Store
	clock  clockwork.Clock
	window time.Duration
	logger *logrus.Logger
}

// New создает трекер. window <= 0 заменяется на DefaultWindow, nil clock - на системные часы.
func New(store storage.Store, clock clockwork.Clock, window time.Duration, logger *logrus.Logger) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		store:  store,
		clock:  clock,
		window: window,
		logger: logger,
	}
}

// ShouldSuppress сообщает, находится ли тип угрозы в периоде тишины.
// Истечение проверяется в момент чтения. Ошибка хранилища не подавляет оповещение.
func (t *Tracker) ShouldSuppress(ctx context.Context, threatType models.ReportType) bool {
	var entry models.CooldownEntry
	err := storage.GetJSON(ctx, t.store, keyPrefix+string(threatType), &entry)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.logger.WithError(err).WithField("type", threatType).Warn("Failed to read cooldown entry")
		}
		return false
	}

	return t.clock.Since(entry.RespondedAt) < t.window
}

// MarkResponded запоминает, что пользователь отреагировал на угрозу данного типа
func (t *Tracker) MarkResponded(ctx context.Context, threatType models.ReportType) error {
	entry := models.CooldownEntry{
		ThreatType:  threatType,
		RespondedAt: t.clock.Now().UTC(),
	}
	if err := storage.SetJSON(ctx, t.store, keyPrefix+string(threatType), entry); err != nil {
		return fmt.Errorf("cooldown: could not mark %s as responded: %w", threatType, err)
	}
	return nil
}
