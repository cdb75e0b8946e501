// Package queue - офлайн-очередь отчетов устройства.
//
// Очередь хранится целиком под одним ключом локального хранилища, порядок FIFO.
// Элемент удаляется только после подтверждения бэкендом; неудачная попытка
// возвращает его в ожидание с увеличенным счетчиком попыток.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/client"
	"github.com/shenikar/incident_reporting_system/internal/device/storage"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	pendingKey    = "offline_queue"
	deadLetterKey = "offline_queue_dead"
)

// Sender отправляет отчет на бэкенд. nil - отчет принят.
type Sender interface {
	SubmitReport(ctx context.Context, report models.Report) error
}

// Connectivity сообщает текущее состояние связи и принимает подтвержденную потерю связи
type Connectivity interface {
	Online() bool
	SetOnline(online bool)
}

// DrainResult - итог одного прохода по очереди
type DrainResult struct {
	Sent         int
	Failed       int
	DeadLettered int
	Remaining    int
	// Skipped - проход уже выполнялся, этот вызов ничего не сделал
	Skipped bool
	// Aborted - проход прерван из-за потери связи
	Aborted bool
}

type Queue struct {
	store       storage.Store
	sender      Sender
	conn        Connectivity
	logger      *logrus.Logger
	clock       clockwork.Clock
	maxAttempts int

	// mu защищает чтение-изменение-запись сохраненного списка
	mu       sync.Mutex
	draining atomic.Bool
}

type Option func(*Queue)

func WithClock(clock clockwork.Clock) Option {
	return func(q *Queue) { q.clock = clock }
}

// WithMaxAttempts задает лимит попыток. 0 - без лимита.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) { q.maxAttempts = n }
}

func New(store storage.Store, sender Sender, conn Connectivity, logger *logrus.Logger, opts ...Option) *Queue {
	q := &Queue{
		store:  store,
		sender: sender,
		conn:   conn,
		logger: logger,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue добавляет отчет в конец очереди. Отчет с уже известным ID заменяется на месте.
func (q *Queue) Enqueue(ctx context.Context, report models.Report) error {
	if report.ID == uuid.Nil {
		return fmt.Errorf("queue: report id is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx, pendingKey)
	if err != nil {
		return err
	}

	replaced := false
	for i := range items {
		if items[i].Report.ID == report.ID {
			items[i].Report = report
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, models.QueuedReport{Report: report})
	}

	if err := q.save(ctx, pendingKey, items); err != nil {
		return err
	}
	q.logger.WithFields(logrus.Fields{
		"report_id": report.ID,
		"replaced":  replaced,
		"pending":   len(items),
	}).Info("Report queued")
	return nil
}

// Pending возвращает снимок ожидающих отчетов
func (q *Queue) Pending(ctx context.Context) ([]models.QueuedReport, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx, pendingKey)
}

// DeadLetters возвращает отчеты, исключенные из повторной отправки
func (q *Queue) DeadLetters(ctx context.Context) ([]models.QueuedReport, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx, deadLetterKey)
}

// Drain отправляет ожидающие отчеты по порядку.
// Одновременно выполняется только один проход, параллельный вызов возвращает Skipped.
// При потере связи проход прерывается, оставшиеся отчеты остаются в очереди.
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
	if !q.draining.CompareAndSwap(false, true) {
		return DrainResult{Skipped: true}, nil
	}
	defer q.draining.Store(false)

	log := q.logger.WithField("method", "Drain")

	snapshot, err := q.Pending(ctx)
	if err != nil {
		return DrainResult{}, fmt.Errorf("queue: could not load pending reports: %w", err)
	}

	var result DrainResult
	for _, item := range snapshot {
		if ctx.Err() != nil || (q.conn != nil && !q.conn.Online()) {
			result.Aborted = true
			break
		}

		sendErr := q.sender.SubmitReport(ctx, item.Report)
		if sendErr == nil {
			if err := q.ack(ctx, item.Report); err != nil {
				// Отчет принят, но остался в очереди и уйдет повторно
				log.WithError(err).WithField("report_id", item.Report.ID).Error("Failed to remove acknowledged report")
			}
			result.Sent++
			continue
		}

		deadLettered, err := q.fail(ctx, item.Report, sendErr)
		if err != nil {
			log.WithError(err).WithField("report_id", item.Report.ID).Error("Failed to record failed attempt")
		}
		if deadLettered {
			result.DeadLettered++
		} else {
			result.Failed++
		}

		if errors.Is(sendErr, client.ErrUnreachable) {
			log.WithError(sendErr).Info("Backend unreachable, stopping drain")
			// Следующая успешная проверка связи станет переходом и снова запустит отправку
			if q.conn != nil {
				q.conn.SetOnline(false)
			}
			result.Aborted = true
			break
		}
	}

	if remaining, err := q.Pending(ctx); err == nil {
		result.Remaining = len(remaining)
	}

	log.WithFields(logrus.Fields{
		"sent":          result.Sent,
		"failed":        result.Failed,
		"dead_lettered": result.DeadLettered,
		"remaining":     result.Remaining,
		"aborted":       result.Aborted,
	}).Info("Drain finished")
	return result, nil
}

// ack удаляет отправленный отчет. Если за время отправки отчет был заменен, новая версия остается.
func (q *Queue) ack(ctx context.Context, sent models.Report) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx, pendingKey)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].Report.ID == sent.ID {
			if !items[i].Report.Equal(sent) {
				return nil
			}
			items = append(items[:i], items[i+1:]...)
			return q.save(ctx, pendingKey, items)
		}
	}
	return nil
}

// fail увеличивает счетчик попыток и при необходимости переносит отчет в dead-letter список
func (q *Queue) fail(ctx context.Context, report models.Report, sendErr error) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx, pendingKey)
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range items {
		if items[i].Report.ID == report.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	items[idx].Attempts++
	items[idx].LastAttemptAt = q.clock.Now().UTC()

	if !q.shouldDeadLetter(items[idx], sendErr) {
		return false, q.save(ctx, pendingKey, items)
	}

	moved := items[idx]
	dead, err := q.load(ctx, deadLetterKey)
	if err != nil {
		return false, err
	}
	prevDead := append([]models.QueuedReport(nil), dead...)
	if err := q.save(ctx, deadLetterKey, upsertByID(dead, moved)); err != nil {
		return false, err
	}
	items = append(items[:idx], items[idx+1:]...)
	if err := q.save(ctx, pendingKey, items); err != nil {
		// Отчет не должен остаться в обоих списках: возвращаем dead-letter в прежнее состояние
		if rbErr := q.save(ctx, deadLetterKey, prevDead); rbErr != nil {
			q.logger.WithError(rbErr).WithField("report_id", report.ID).
				Error("Report left in both pending and dead-letter lists")
		}
		return false, err
	}

	q.logger.WithError(sendErr).WithFields(logrus.Fields{
		"report_id": report.ID,
		"attempts":  moved.Attempts,
	}).Warn("Report moved to dead-letter list")
	return true, nil
}

// upsertByID заменяет элемент с тем же ID или добавляет его в конец
func upsertByID(items []models.QueuedReport, item models.QueuedReport) []models.QueuedReport {
	for i := range items {
		if items[i].Report.ID == item.Report.ID {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func (q *Queue) shouldDeadLetter(item models.QueuedReport, sendErr error) bool {
	// Бэкенд отверг отчет как некорректный, повтор ничего не изменит
	var statusErr *client.StatusError
	if errors.As(sendErr, &statusErr) && statusErr.IsClientError() {
		return true
	}
	return q.maxAttempts > 0 && item.Attempts >= q.maxAttempts
}

func (q *Queue) load(ctx context.Context, key string) ([]models.QueuedReport, error) {
	var items []models.QueuedReport
	if err := storage.GetJSON(ctx, q.store, key, &items); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: could not load %s: %w", key, err)
	}
	return items, nil
}

func (q *Queue) save(ctx context.Context, key string, items []models.QueuedReport) error {
	if items == nil {
		items = []models.QueuedReport{}
	}
	if err := storage.SetJSON(ctx, q.store, key, items); err != nil {
		return fmt.Errorf("queue: could not save %s: %w", key, err)
	}
	return nil
}
