package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/client"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSender struct {
	err   error
	calls int
}

func (f *fakeSender) SubmitReport(context.Context, models.Report) error {
	f.calls++
	return f.err
}

type fakeQueue struct {
	err    error
	queued []models.Report
}

func (f *fakeQueue) Enqueue(_ context.Context, report models.Report) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, report)
	return nil
}

type stubConn struct{ online bool }

func (c *stubConn) Online() bool { return c.online }

func (c *stubConn) SetOnline(online bool) { c.online = online }

type fixedIdentity string

func (i fixedIdentity) GetOrCreateID(context.Context) string { return string(i) }

func newTestSubmitter(sender *fakeSender, queue *fakeQueue, online bool) *Submitter {
	s, _ := newTestSubmitterWithConn(sender, queue, online)
	return s
}

func newTestSubmitterWithConn(sender *fakeSender, queue *fakeQueue, online bool) (*Submitter, *stubConn) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	conn := &stubConn{online: online}
	return New(sender, queue, conn, fixedIdentity("device-1"), clockwork.NewFakeClockAt(testNow), logger), conn
}

func validReport() models.Report {
	return models.Report{Type: models.ReportTypeFlood, Latitude: 55.75, Longitude: 37.61}
}

func TestSubmit_Sent(t *testing.T) {
	sender, queue := &fakeSender{}, &fakeQueue{}
	s := newTestSubmitter(sender, queue, true)

	result := s.Submit(context.Background(), validReport())

	assert.Equal(t, StatusSent, result.Status)
	assert.Empty(t, result.Reason)
	assert.Equal(t, "device-1", result.Report.ReporterID)
	assert.Equal(t, testNow, result.Report.CreatedAt)
	assert.Equal(t, uuid.Version(7), result.Report.ID.Version())
	assert.Empty(t, queue.queued)
}

func TestSubmit_OfflineQueuesWithoutNetwork(t *testing.T) {
	sender, queue := &fakeSender{}, &fakeQueue{}
	s := newTestSubmitter(sender, queue, false)

	result := s.Submit(context.Background(), validReport())

	assert.Equal(t, StatusQueued, result.Status)
	assert.Equal(t, "offline", result.Reason)
	assert.Zero(t, sender.calls)
	require.Len(t, queue.queued, 1)
	assert.Equal(t, result.Report.ID, queue.queued[0].ID)
}

func TestSubmit_SendErrorsQueue(t *testing.T) {
	cases := map[string]error{
		"unreachable": fmt.Errorf("%w: timeout", client.ErrUnreachable),
		"server":      &client.StatusError{StatusCode: http.StatusInternalServerError},
		"rejected":    &client.StatusError{StatusCode: http.StatusBadRequest},
		"other":       errors.New("decode failed"),
	}

	for name, sendErr := range cases {
		t.Run(name, func(t *testing.T) {
			sender, queue := &fakeSender{err: sendErr}, &fakeQueue{}
			s := newTestSubmitter(sender, queue, true)

			result := s.Submit(context.Background(), validReport())

			assert.Equal(t, StatusQueued, result.Status)
			assert.Equal(t, sendErr.Error(), result.Reason)
			assert.Len(t, queue.queued, 1)
		})
	}
}

func TestSubmit_UnreachableMarksOffline(t *testing.T) {
	sender := &fakeSender{err: fmt.Errorf("%w: connection refused", client.ErrUnreachable)}
	s, conn := newTestSubmitterWithConn(sender, &fakeQueue{}, true)

	result := s.Submit(context.Background(), validReport())

	assert.Equal(t, StatusQueued, result.Status)
	assert.False(t, conn.Online())
}

func TestSubmit_RejectionKeepsOnline(t *testing.T) {
	sender := &fakeSender{err: &client.StatusError{StatusCode: http.StatusInternalServerError}}
	s, conn := newTestSubmitterWithConn(sender, &fakeQueue{}, true)

	result := s.Submit(context.Background(), validReport())

	assert.Equal(t, StatusQueued, result.Status)
	assert.True(t, conn.Online())
}

func TestSubmit_QueueFailureIsFailed(t *testing.T) {
	sender, queue := &fakeSender{}, &fakeQueue{err: errors.New("disk full")}
	s := newTestSubmitter(sender, queue, false)

	result := s.Submit(context.Background(), validReport())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Reason, "disk full")
}

func TestSubmit_InvalidReportFails(t *testing.T) {
	cases := map[string]models.Report{
		"unknown type":   {Type: "earthquake", Latitude: 1, Longitude: 1},
		"nan latitude":   {Type: models.ReportTypeFire, Latitude: math.NaN(), Longitude: 1},
		"out of range":   {Type: models.ReportTypeFire, Latitude: 1, Longitude: 200},
		"infinite value": {Type: models.ReportTypeFire, Latitude: math.Inf(-1), Longitude: 1},
	}

	for name, report := range cases {
		t.Run(name, func(t *testing.T) {
			sender, queue := &fakeSender{}, &fakeQueue{}
			s := newTestSubmitter(sender, queue, true)

			result := s.Submit(context.Background(), report)

			assert.Equal(t, StatusFailed, result.Status)
			assert.NotEmpty(t, result.Reason)
			assert.Zero(t, sender.calls)
			assert.Empty(t, queue.queued)
		})
	}
}

func TestSubmit_KeepsClientFields(t *testing.T) {
	sender, queue := &fakeSender{}, &fakeQueue{}
	s := newTestSubmitter(sender, queue, true)
	id := uuid.New()
	created := testNow.Add(-time.Hour)
	report := validReport()
	report.ID = id
	report.ReporterID = "other-device"
	report.CreatedAt = created

	result := s.Submit(context.Background(), report)

	assert.Equal(t, id, result.Report.ID)
	assert.Equal(t, "other-device", result.Report.ReporterID)
	assert.Equal(t, created, result.Report.CreatedAt)
}
