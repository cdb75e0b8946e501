// Package client - HTTP-клиент устройства для API бэкенда.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrUnreachable - бэкенд недоступен: ошибка транспорта или таймаут
var ErrUnreachable = errors.New("backend unreachable")

// StatusError - бэкенд ответил не 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded with status %d: %s", e.StatusCode, e.Body)
}

// IsClientError сообщает, что запрос отклонен как некорректный
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

const maxErrorBody = 512

type locationPayload struct {
	UserID    string  `json:"userId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type reportPayload struct {
	UserID      string  `json:"userId"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Confirmed   bool    `json:"confirmed,omitempty"`
}

type threatPayload struct {
	HasThreat bool   `json:"hasThreat"`
	Type      string `json:"type"`
	Count     int    `json:"count"`
	Location  *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// New создает клиент. Каждый вызов ограничен timeout; таймаут считается сетевой ошибкой.
func New(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SubmitReport отправляет отчет. nil означает подтверждение приема бэкендом.
func (c *Client) SubmitReport(ctx context.Context, report models.Report) error {
	payload := reportPayload{
		UserID:      report.ReporterID,
		Type:        string(report.Type),
		Description: report.Description,
		Latitude:    report.Latitude,
		Longitude:   report.Longitude,
		Confirmed:   report.Confirmed,
	}
	return c.post(ctx, "/api/reports", payload, nil)
}

// RecordLocation отправляет текущее местоположение устройства
func (c *Client) RecordLocation(ctx context.Context, reporterID string, lat, lon float64) error {
	return c.post(ctx, "/api/user/location", locationPayload{UserID: reporterID, Latitude: lat, Longitude: lon}, nil)
}

// CheckThreat запрашивает сигнал угрозы для точки
func (c *Client) CheckThreat(ctx context.Context, reporterID string, lat, lon float64) (models.ThreatSignal, error) {
	var resp threatPayload
	if err := c.post(ctx, "/api/predictive/check", locationPayload{UserID: reporterID, Latitude: lat, Longitude: lon}, &resp); err != nil {
		return models.NoThreat(), err
	}
	if !resp.HasThreat {
		return models.NoThreat(), nil
	}

	signal := models.ThreatSignal{
		HasThreat: true,
		Type:      models.ReportType(resp.Type),
		Count:     resp.Count,
	}
	if resp.Location != nil {
		signal.Centroid = models.Point{Latitude: resp.Location.Latitude, Longitude: resp.Location.Longitude}
	}
	return signal, nil
}

// Ping проверяет доступность бэкенда через health-check
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/system/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	log := c.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Debug("Backend request failed")
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.WithField("status", resp.StatusCode).Warn("Backend returned non-2xx status")
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
