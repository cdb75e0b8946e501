package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/client"
	"github.com/shenikar/incident_reporting_system/internal/device/storage"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// scriptedSender отвечает ошибками из errs по ID отчета и запоминает порядок отправки
type scriptedSender struct {
	mu     sync.Mutex
	errs   map[uuid.UUID]error
	sent   []uuid.UUID
	before func(report models.Report)
}

func (s *scriptedSender) SubmitReport(_ context.Context, report models.Report) error {
	if s.before != nil {
		s.before(report)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, report.ID)
	return s.errs[report.ID]
}

type stubConn struct{ online atomic.Bool }

func (c *stubConn) Online() bool { return c.online.Load() }

func (c *stubConn) SetOnline(online bool) { c.online.Store(online) }

func onlineConn() *stubConn {
	c := &stubConn{}
	c.online.Store(true)
	return c
}

func newReport(t *testing.T, description string) models.Report {
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return models.Report{
		ID:          id,
		ReporterID:  "device-1",
		Type:        models.ReportTypeFlood,
		Description: description,
		Latitude:    55.75,
		Longitude:   37.61,
		CreatedAt:   testNow,
	}
}

func newTestQueue(sender Sender, conn Connectivity, opts ...Option) (*Queue, *storage.MemoryStore) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	store := storage.NewMemoryStore()
	opts = append([]Option{WithClock(clockwork.NewFakeClockAt(testNow))}, opts...)
	return New(store, sender, conn, logger, opts...), store
}

func pendingIDs(t *testing.T, q *Queue) []uuid.UUID {
	items, err := q.Pending(context.Background())
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.Report.ID
	}
	return ids
}

func TestEnqueue_IdempotentByID(t *testing.T) {
	q, _ := newTestQueue(&scriptedSender{}, onlineConn())
	ctx := context.Background()
	a, b := newReport(t, "a"), newReport(t, "b")

	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))
	a.Description = "a, updated"
	require.NoError(t, q.Enqueue(ctx, a))

	items, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].Report.ID)
	assert.Equal(t, "a, updated", items[0].Report.Description)
	assert.Equal(t, b.ID, items[1].Report.ID)
}

func TestEnqueue_RequiresID(t *testing.T) {
	q, _ := newTestQueue(&scriptedSender{}, onlineConn())

	err := q.Enqueue(context.Background(), models.Report{ReporterID: "device-1"})

	assert.Error(t, err)
}

func TestEnqueue_StorageErrorIsReturned(t *testing.T) {
	q, store := newTestQueue(&scriptedSender{}, onlineConn())
	store.FailWith(errors.New("disk full"))

	err := q.Enqueue(context.Background(), newReport(t, "a"))

	assert.ErrorContains(t, err, "disk full")
}

func TestDrain_SendsInOrderAndRemoves(t *testing.T) {
	sender := &scriptedSender{}
	q, _ := newTestQueue(sender, onlineConn())
	ctx := context.Background()
	reports := []models.Report{newReport(t, "1"), newReport(t, "2"), newReport(t, "3")}
	for _, r := range reports {
		require.NoError(t, q.Enqueue(ctx, r))
	}

	result, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.Equal(t, DrainResult{Sent: 3}, result)
	assert.Equal(t, []uuid.UUID{reports[0].ID, reports[1].ID, reports[2].ID}, sender.sent)
	assert.Empty(t, pendingIDs(t, q))
}

func TestDrain_FailureKeepsItemAndContinues(t *testing.T) {
	a, b := newReport(t, "a"), newReport(t, "b")
	sender := &scriptedSender{errs: map[uuid.UUID]error{
		a.ID: &client.StatusError{StatusCode: http.StatusServiceUnavailable},
	}}
	q, _ := newTestQueue(sender, onlineConn())
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))

	result, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Remaining)
	assert.False(t, result.Aborted)

	items, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].Report.ID)
	assert.Equal(t, 1, items[0].Attempts)
	assert.Equal(t, testNow, items[0].LastAttemptAt)
}

func TestDrain_UnreachableStopsEarly(t *testing.T) {
	a, b, c := newReport(t, "a"), newReport(t, "b"), newReport(t, "c")
	sender := &scriptedSender{errs: map[uuid.UUID]error{
		b.ID: fmt.Errorf("%w: connection refused", client.ErrUnreachable),
	}}
	conn := onlineConn()
	q, _ := newTestQueue(sender, conn)
	ctx := context.Background()
	for _, r := range []models.Report{a, b, c} {
		require.NoError(t, q.Enqueue(ctx, r))
	}

	result, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.True(t, result.Aborted)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, sender.sent)
	assert.Equal(t, []uuid.UUID{b.ID, c.ID}, pendingIDs(t, q))
	// Недоступность бэкенда переводит состояние связи в offline
	assert.False(t, conn.Online())
}

func TestDrain_ConnectivityLostMidDrain(t *testing.T) {
	conn := onlineConn()
	a, b := newReport(t, "a"), newReport(t, "b")
	sender := &scriptedSender{before: func(models.Report) { conn.online.Store(false) }}
	q, _ := newTestQueue(sender, conn)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))

	result, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.True(t, result.Aborted)
	assert.Equal(t, []uuid.UUID{a.ID}, sender.sent)
	assert.Equal(t, []uuid.UUID{b.ID}, pendingIDs(t, q))
}

func TestDrain_OfflineSendsNothing(t *testing.T) {
	sender := &scriptedSender{}
	q, _ := newTestQueue(sender, &stubConn{})
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, newReport(t, "a")))

	result, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.True(t, result.Aborted)
	assert.Empty(t, sender.sent)
	assert.Equal(t, 1, result.Remaining)
}

func TestDrain_ConcurrentCallIsCoalesced(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	sender := &scriptedSender{before: func(models.Report) {
		once.Do(func() { close(started) })
		<-release
	}}
	q, _ := newTestQueue(sender, onlineConn())
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, newReport(t, "a")))

	done := make(chan DrainResult)
	go func() {
		result, _ := q.Drain(ctx)
		done <- result
	}()
	<-started

	second, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	close(release)
	first := <-done
	assert.Equal(t, 1, first.Sent)
	assert.Len(t, sender.sent, 1)
}

func TestDrain_ReplacedDuringSendIsKept(t *testing.T) {
	ctx := context.Background()
	first := newReport(t, "first")
	updated := first
	updated.Description = "updated"

	var q *Queue
	var once sync.Once
	sender := &scriptedSender{before: func(models.Report) {
		once.Do(func() { require.NoError(t, q.Enqueue(ctx, updated)) })
	}}
	q, _ = newTestQueue(sender, onlineConn())
	require.NoError(t, q.Enqueue(ctx, first))

	result, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	items, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "updated", items[0].Report.Description)
}

func TestDrain_MaxAttemptsMovesToDeadLetter(t *testing.T) {
	a := newReport(t, "a")
	sender := &scriptedSender{errs: map[uuid.UUID]error{
		a.ID: &client.StatusError{StatusCode: http.StatusInternalServerError},
	}}
	q, _ := newTestQueue(sender, onlineConn(), WithMaxAttempts(2))
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, a))

	first, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Failed)

	second, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.DeadLettered)
	assert.Equal(t, 0, second.Remaining)

	dead, err := q.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, a.ID, dead[0].Report.ID)
	assert.Equal(t, 2, dead[0].Attempts)
}

func TestDrain_RejectedReportMovesToDeadLetter(t *testing.T) {
	a := newReport(t, "a")
	sender := &scriptedSender{errs: map[uuid.UUID]error{
		a.ID: &client.StatusError{StatusCode: http.StatusBadRequest},
	}}
	q, _ := newTestQueue(sender, onlineConn())
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, a))

	result, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.DeadLettered)
	assert.Empty(t, pendingIDs(t, q))
	dead, err := q.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Len(t, dead, 1)
}

func TestDrain_StorageErrorOnLoad(t *testing.T) {
	q, store := newTestQueue(&scriptedSender{}, onlineConn())
	store.FailWith(errors.New("io error"))

	_, err := q.Drain(context.Background())

	assert.ErrorContains(t, err, "could not load pending reports")
}

// pendingWriteFailStore отказывает в записи очереди ожидания, пока включен fail
type pendingWriteFailStore struct {
	storage.Store
	fail atomic.Bool
}

func (s *pendingWriteFailStore) Set(ctx context.Context, key string, value []byte) error {
	if key == pendingKey && s.fail.Load() {
		return errors.New("write failed")
	}
	return s.Store.Set(ctx, key, value)
}

func TestDrain_DeadLetterMoveRolledBackOnPendingWriteFailure(t *testing.T) {
	a := newReport(t, "a")
	store := &pendingWriteFailStore{Store: storage.NewMemoryStore()}
	sender := &scriptedSender{
		errs:   map[uuid.UUID]error{a.ID: &client.StatusError{StatusCode: http.StatusBadRequest}},
		before: func(models.Report) { store.fail.Store(true) },
	}
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	q := New(store, sender, onlineConn(), logger, WithClock(clockwork.NewFakeClockAt(testNow)))
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, a))

	result, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.Zero(t, result.DeadLettered)
	assert.Equal(t, []uuid.UUID{a.ID}, pendingIDs(t, q))
	dead, err := q.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Empty(t, dead)

	// После восстановления хранилища отчет переносится ровно один раз
	sender.before = nil
	store.fail.Store(false)
	result, err = q.Drain(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.DeadLettered)
	assert.Empty(t, pendingIDs(t, q))
	dead, err = q.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, a.ID, dead[0].Report.ID)
}

func TestUpsertByID_ReplacesExisting(t *testing.T) {
	a, b := newReport(t, "a"), newReport(t, "b")
	items := []models.QueuedReport{{Report: a, Attempts: 1}, {Report: b}}

	items = upsertByID(items, models.QueuedReport{Report: a, Attempts: 3})

	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Attempts)
}
