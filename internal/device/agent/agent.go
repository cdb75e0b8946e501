// Package agent связывает компоненты устройства в один процесс.
package agent

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/client"
	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/device/connectivity"
	"github.com/shenikar/incident_reporting_system/internal/device/cooldown"
	"github.com/shenikar/incident_reporting_system/internal/device/identity"
	"github.com/shenikar/incident_reporting_system/internal/device/poller"
	"github.com/shenikar/incident_reporting_system/internal/device/queue"
	"github.com/shenikar/incident_reporting_system/internal/device/storage"
	"github.com/shenikar/incident_reporting_system/internal/device/submit"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// Backend - операции бэкенда, нужные агенту
type Backend interface {
	SubmitReport(ctx context.Context, report models.Report) error
	RecordLocation(ctx context.Context, reporterID string, lat, lon float64) error
	CheckThreat(ctx context.Context, reporterID string, lat, lon float64) (models.ThreatSignal, error)
	Ping(ctx context.Context) error
}

var _ Backend = (*client.Client)(nil)

// AlertFunc показывает пользователю оповещение об угрозе
type AlertFunc func(signal models.ThreatSignal)

type Agent struct {
	cfg     *config.AgentConfig
	backend Backend
	logger  *logrus.Logger
	clock   clockwork.Clock
	alert   AlertFunc

	identity  *identity.Store
	monitor   *connectivity.Monitor
	queue     *queue.Queue
	submitter *submit.Submitter
	cooldown  *cooldown.Tracker
	poller    *poller.Poller

	// wg отслеживает фоновые проходы по очереди
	wg sync.WaitGroup
}

type Option func(*Agent)

func WithClock(clock clockwork.Clock) Option {
	return func(a *Agent) { a.clock = clock }
}

// WithAlert задает обработчик оповещений. По умолчанию оповещение пишется в лог.
func WithAlert(alert AlertFunc) Option {
	return func(a *Agent) { a.alert = alert }
}

func New(cfg *config.AgentConfig, store storage.Store, backend Backend, logger *logrus.Logger, opts ...Option) *Agent {
	a := &Agent{
		cfg:     cfg,
		backend: backend,
		logger:  logger,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.alert == nil {
		a.alert = a.logAlert
	}

	a.identity = identity.New(store, logger)
	a.monitor = connectivity.NewMonitor(backend, logger,
		connectivity.WithClock(a.clock),
		connectivity.WithInterval(cfg.ProbeInterval),
		connectivity.WithTimeout(cfg.ClientTimeout),
	)
	a.queue = queue.New(store, backend, a.monitor, logger,
		queue.WithClock(a.clock),
		queue.WithMaxAttempts(cfg.QueueMaxAttempts),
	)
	a.submitter = submit.New(backend, a.queue, a.monitor, a.identity, a.clock, logger)
	a.cooldown = cooldown.New(store, a.clock, cfg.CooldownWindow, logger)
	a.poller = poller.New(backend, a.identity, a.clock, cfg.PollInterval, logger)

	// Восстановление связи - единственный автоматический триггер отправки очереди
	a.monitor.Subscribe(func(online bool) {
		if online {
			a.drainAsync()
		}
	})
	return a
}

// Run запускает мониторинг связи, опрос угроз и отправку координат. Блокируется до отмены ctx.
func (a *Agent) Run(ctx context.Context) {
	log := a.logger.WithField("method", "Run")
	log.WithField("device_id", a.identity.GetOrCreateID(ctx)).Info("Device agent started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.monitor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.poller.Run(ctx, a.locate, a.handleSignal)
	}()

	wg.Wait()
	a.Wait()
	log.Info("Device agent stopped")
}

// Probe однократно проверяет связь с бэкендом
func (a *Agent) Probe(ctx context.Context) bool {
	return a.monitor.Probe(ctx)
}

// Submit отправляет отчет или ставит его в очередь
func (a *Agent) Submit(ctx context.Context, report models.Report) submit.Result {
	return a.submitter.Submit(ctx, report)
}

// Wait ждет завершения фоновых проходов по очереди
func (a *Agent) Wait() {
	a.wg.Wait()
}

// Drain синхронно отправляет очередь
func (a *Agent) Drain(ctx context.Context) (queue.DrainResult, error) {
	return a.queue.Drain(ctx)
}

// Respond отмечает, что пользователь отреагировал на угрозу данного типа
func (a *Agent) Respond(ctx context.Context, threatType models.ReportType) error {
	return a.cooldown.MarkResponded(ctx, threatType)
}

// Status - состояние агента для команды status
type Status struct {
	DeviceID    string `json:"deviceId"`
	Online      bool   `json:"online"`
	Pending     int    `json:"pending"`
	DeadLetters int    `json:"deadLetters"`
}

func (a *Agent) Status(ctx context.Context) (Status, error) {
	pending, err := a.queue.Pending(ctx)
	if err != nil {
		return Status{}, err
	}
	dead, err := a.queue.DeadLetters(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		DeviceID:    a.identity.GetOrCreateID(ctx),
		Online:      a.monitor.Online(),
		Pending:     len(pending),
		DeadLetters: len(dead),
	}, nil
}

func (a *Agent) drainAsync() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		// Проход не привязан к контексту Run: начатая отправка доводится до конца
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ClientTimeout*10)
		defer cancel()

		if _, err := a.queue.Drain(ctx); err != nil {
			a.logger.WithError(err).Error("Failed to drain offline queue")
		}
	}()
}

// locate отправляет координаты устройства на бэкенд и возвращает их поллеру.
// Без заданных координат местоположение неизвестно.
func (a *Agent) locate(ctx context.Context) (float64, float64, bool) {
	if !a.cfg.HasDeviceLocation {
		return 0, 0, false
	}
	lat, lon := a.cfg.DeviceLatitude, a.cfg.DeviceLongitude
	if !a.monitor.Online() {
		return lat, lon, true
	}
	if err := a.backend.RecordLocation(ctx, a.identity.GetOrCreateID(ctx), lat, lon); err != nil {
		a.logger.WithError(err).Debug("Failed to send location")
	}
	return lat, lon, true
}

// handleSignal показывает оповещение, если тип угрозы не в периоде тишины
func (a *Agent) handleSignal(ctx context.Context, signal models.ThreatSignal) {
	if !signal.HasThreat {
		return
	}
	if a.cooldown.ShouldSuppress(ctx, signal.Type) {
		a.logger.WithField("type", signal.Type).Debug("Threat alert suppressed by cooldown")
		return
	}
	a.alert(signal)
}

func (a *Agent) logAlert(signal models.ThreatSignal) {
	a.logger.WithFields(logrus.Fields{
		"type":      signal.Type,
		"count":     signal.Count,
		"latitude":  signal.Centroid.Latitude,
		"longitude": signal.Centroid.Longitude,
	}).Warn("Threat detected nearby")
}
