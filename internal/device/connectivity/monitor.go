// Package connectivity следит за доступностью бэкенда и сообщает о переходах online/offline.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval = 15 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// Prober выполняет одну проверку доступности
type Prober interface {
	Ping(ctx context.Context) error
}

// Listener вызывается при каждом изменении состояния
type Listener func(online bool)

// Monitor хранит текущее состояние связи. До первой проверки устройство считается offline.
type Monitor struct {
	prober   Prober
	logger   *logrus.Logger
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration

	online atomic.Bool

	mu        sync.Mutex
	listeners []Listener
}

type Option func(*Monitor)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Monitor) { m.clock = clock }
}

func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) { m.interval = interval }
}

func WithTimeout(timeout time.Duration) Option {
	return func(m *Monitor) { m.timeout = timeout }
}

func NewMonitor(prober Prober, logger *logrus.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		prober:   prober,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Subscribe регистрирует слушателя переходов
func (m *Monitor) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// SetOnline меняет состояние. Слушатели вызываются синхронно и только при реальном переходе.
func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}

	m.logger.WithField("online", online).Info("Connectivity changed")

	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(online)
	}
}

// Probe выполняет одну проверку и обновляет состояние
func (m *Monitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Ping(probeCtx)
	if err != nil {
		m.logger.WithError(err).Debug("Connectivity probe failed")
	}
	// Отмена внешнего контекста - не признак потери связи
	if ctx.Err() != nil {
		return m.Online()
	}
	m.SetOnline(err == nil)
	return err == nil
}

// Run проверяет связь сразу и затем каждые interval до отмены ctx
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Probe(ctx)
		}
	}
}
