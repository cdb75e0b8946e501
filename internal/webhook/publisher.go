package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_reporting_system/internal/models"
)

//go:generate mockgen -source=publisher.go -destination=mocks/mock_publisher.go -package=mocks

const (
	webhookQueueKey = "webhook_events"
)

// ReportEvent - данные вебхука о новом сообщении о происшествии
type ReportEvent struct {
	ReportID    string            `json:"report_id"`
	ReporterID  string            `json:"reporter_id"`
	Type        models.ReportType `json:"type"`
	Description string            `json:"description,omitempty"`
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	Confirmed   bool              `json:"confirmed"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewReportEvent собирает событие из сохраненного отчета
func NewReportEvent(report *models.Report) ReportEvent {
	return ReportEvent{
		ReportID:    report.ID.String(),
		ReporterID:  report.ReporterID,
		Type:        report.Type,
		Description: report.Description,
		Latitude:    report.Latitude,
		Longitude:   report.Longitude,
		Confirmed:   report.Confirmed,
		Timestamp:   report.CreatedAt,
	}
}

// Publisher - интерфейс для публикации вебхуков
type Publisher interface {
	Publish(ctx context.Context, event ReportEvent) error
}

// RedisPublisher - реализация Publisher, использующая список Redis как очередь
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish публикует событие вебхука в очередь Redis
func (p *RedisPublisher) Publish(ctx context.Context, event ReportEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	// LPUSH добавляет в левую часть списка, воркер забирает справа
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}

// NopPublisher ничего не публикует. Используется, когда вебхуки не настроены.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ReportEvent) error { return nil }
