package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T, url string) *Worker {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		WebhookURL:        url,
		WebhookSecret:     "secret",
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Millisecond,
	}
	w := NewWorker(nil, logger, cfg, nil)
	w.sleep = func(context.Context, time.Duration) {}
	return w
}

func testEvent(t *testing.T) (ReportEvent, string) {
	t.Helper()
	event := NewReportEvent(&models.Report{
		ID:         uuid.New(),
		ReporterID: "device-1",
		Type:       models.ReportTypeFire,
		Latitude:   55.75,
		Longitude:  37.61,
		CreatedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return event, string(payload)
}

func TestDeliver_SignsPayload(t *testing.T) {
	event, payload := testEvent(t)
	var gotSignature, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotSignature = r.Header.Get(signatureHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	worker := newTestWorker(t, srv.URL)

	assert.True(t, worker.deliver(context.Background(), event, payload))
	assert.Equal(t, payload, gotBody)
	assert.Equal(t, generateHMACSHA256(payload, "secret"), gotSignature)
}

func TestDeliver_RetriesUntilSuccess(t *testing.T) {
	event, payload := testEvent(t)
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	worker := newTestWorker(t, srv.URL)

	assert.True(t, worker.deliver(context.Background(), event, payload))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDeliver_GivesUpAfterMaxRetries(t *testing.T) {
	event, payload := testEvent(t)
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	worker := newTestWorker(t, srv.URL)

	assert.False(t, worker.deliver(context.Background(), event, payload))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDeliver_SkipsWithoutURL(t *testing.T) {
	event, payload := testEvent(t)
	worker := newTestWorker(t, "")

	assert.False(t, worker.deliver(context.Background(), event, payload))
}
