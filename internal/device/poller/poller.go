// Package poller периодически запрашивает у бэкенда сигнал угрозы для текущего местоположения.
package poller

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

const DefaultInterval = time.Minute

type ThreatSource interface {
	CheckThreat(ctx context.Context, reporterID string, lat, lon float64) (models.ThreatSignal, error)
}

type Identity interface {
	GetOrCreateID(ctx context.Context) string
}

// Locator возвращает текущие координаты устройства. ok=false - координаты неизвестны, опрос пропускается.
type Locator func(ctx context.Context) (lat, lon float64, ok bool)

// Handler получает результат каждого успешного опроса
type Handler func(ctx context.Context, signal models.ThreatSignal)

type Poller struct {
	source   ThreatSource
	identity Identity
	clock    clockwork.Clock
	interval time.Duration
	logger   *logrus.Logger
}

func New(source ThreatSource, identity Identity, clock clockwork.Clock, interval time.Duration, logger *logrus.Logger) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		source:   source,
		identity: identity,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// Poll выполняет один запрос. Любая ошибка трактуется как отсутствие угрозы, повтора нет.
func (p *Poller) Poll(ctx context.Context, lat, lon float64) models.ThreatSignal {
	signal, err := p.source.CheckThreat(ctx, p.identity.GetOrCreateID(ctx), lat, lon)
	if err != nil {
		p.logger.WithError(err).WithField("method", "Poll").Debug("Threat check failed, assuming no threat")
		return models.NoThreat()
	}
	return signal
}

// Run опрашивает сразу и затем каждые interval до отмены ctx.
// Тик, пришедший во время выполнения опроса, пропускается.
func (p *Poller) Run(ctx context.Context, locate Locator, handle Handler) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx, locate, handle)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.tick(ctx, locate, handle)
		}
	}
}

func (p *Poller) tick(ctx context.Context, locate Locator, handle Handler) {
	lat, lon, ok := locate(ctx)
	if !ok {
		p.logger.WithField("method", "Run").Debug("Location unknown, skipping poll")
		return
	}
	handle(ctx, p.Poll(ctx, lat, lon))
}
