package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return New(server.URL, timeout, logger)
}

func TestSubmitReport_Success(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reports", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}, time.Second)

	err := c.SubmitReport(context.Background(), models.Report{
		ReporterID: "device-1",
		Type:       models.ReportTypeFlood,
		Latitude:   0,
		Longitude:  37.61,
	})

	require.NoError(t, err)
	assert.Equal(t, "device-1", got["userId"])
	assert.Equal(t, "flood", got["type"])
	assert.Equal(t, 0.0, got["latitude"])
	assert.NotContains(t, got, "confirmed")
}

func TestSubmitReport_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"down"}`))
	}, time.Second)

	err := c.SubmitReport(context.Background(), models.Report{ReporterID: "device-1", Type: models.ReportTypeFire})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.False(t, statusErr.IsClientError())
	assert.Contains(t, statusErr.Body, "down")
	assert.False(t, errors.Is(err, ErrUnreachable))
}

func TestClient_TimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	err := c.RecordLocation(context.Background(), "device-1", 1, 2)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestClient_ConnectionRefusedIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	c := New(url, time.Second, logger)

	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnreachable)
}

func TestCheckThreat_Decodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/predictive/check", r.URL.Path)
		_, _ = w.Write([]byte(`{"hasThreat":true,"type":"fire","count":3,"location":{"latitude":1.5,"longitude":2.5}}`))
	}, time.Second)

	signal, err := c.CheckThreat(context.Background(), "device-1", 1, 2)

	require.NoError(t, err)
	assert.Equal(t, models.ThreatSignal{
		HasThreat: true,
		Type:      models.ReportTypeFire,
		Count:     3,
		Centroid:  models.Point{Latitude: 1.5, Longitude: 2.5},
	}, signal)
}

func TestCheckThreat_NoThreat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hasThreat":false}`))
	}, time.Second)

	signal, err := c.CheckThreat(context.Background(), "device-1", 1, 2)

	require.NoError(t, err)
	assert.False(t, signal.HasThreat)
}

func TestPing_Healthy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/system/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}, time.Second)

	assert.NoError(t, c.Ping(context.Background()))
}
