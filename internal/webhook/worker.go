package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/observability"
	"github.com/sirupsen/logrus"
)

const signatureHeader = "X-Webhook-Signature"

// Worker - обработчик очереди вебхуков
type Worker struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	cfg         *config.Config
	httpClient  *http.Client
	metrics     *observability.Metrics
	sleep       func(ctx context.Context, d time.Duration)
}

// NewWorker создает новый Worker
func NewWorker(redisClient *redis.Client, logger *logrus.Logger, cfg *config.Config, metrics *observability.Metrics) *Worker {
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Worker{
		redisClient: redisClient,
		logger:      logger,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: cfg.WebhookTimeout,
		},
		metrics: metrics,
		sleep:   sleepContext,
	}
}

// Start запускает горутину для обработки очереди вебхуков
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting webhook worker...")
	go func() {
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Stopping webhook worker.")
				return
			default:
				// BRPOP - блокирующее извлечение из правой части списка, 0 - ждать бесконечно
				result, err := w.redisClient.BRPop(ctx, 0, webhookQueueKey).Result()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						continue
					}
					w.logger.WithError(err).Error("Failed to pop webhook event from Redis")
					w.sleep(ctx, w.cfg.WebhookTimeout)
					continue
				}

				// result[0] - ключ, result[1] - значение
				payload := result[1]
				var event ReportEvent
				if err := json.Unmarshal([]byte(payload), &event); err != nil {
					w.logger.WithError(err).Error("Failed to unmarshal webhook event from Redis")
					continue
				}

				w.deliver(ctx, event, payload)
			}
		}
	}()
}

// deliver отправляет событие с экспоненциальной задержкой между попытками.
// Возвращает true, если получатель ответил 2xx.
func (w *Worker) deliver(ctx context.Context, event ReportEvent, rawPayload string) bool {
	log := w.logger.WithField("event_report_id", event.ReportID).WithField("event_type", event.Type)
	log.Debug("Processing webhook event...")

	if w.cfg.WebhookURL == "" {
		log.Warn("Webhook URL is not configured. Skipping webhook delivery.")
		w.metrics.WebhookDelivery.WithLabelValues("skipped").Inc()
		return false
	}

	maxRetries := w.cfg.WebhookMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	delay := w.cfg.WebhookBaseDelay

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			w.sleep(ctx, delay)
			delay *= 2
		}
		if ctx.Err() != nil {
			break
		}

		err := w.send(ctx, rawPayload)
		if err == nil {
			log.Info("Webhook delivered successfully.")
			w.metrics.WebhookDelivery.WithLabelValues("delivered").Inc()
			return true
		}
		log.WithError(err).Warnf("Webhook delivery attempt failed. Retries left: %d", maxRetries-1-i)
	}

	log.Errorf("Failed to deliver webhook for event after %d attempts.", maxRetries)
	w.metrics.WebhookDelivery.WithLabelValues("failed").Inc()
	return false
}

func (w *Worker) send(ctx context.Context, rawPayload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewBufferString(rawPayload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Добавляем HMAC подпись, если WEBHOOK_SECRET задан
	if w.cfg.WebhookSecret != "" {
		req.Header.Set(signatureHeader, generateHMACSHA256(rawPayload, w.cfg.WebhookSecret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook receiver responded with status %d", resp.StatusCode)
	}
	return nil
}

// generateHMACSHA256 генерирует HMAC-SHA256 подпись для данных
func generateHMACSHA256(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
