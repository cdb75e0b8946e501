package poller

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	signal models.ThreatSignal
	err    error
	calls  atomic.Int32
	userID atomic.Value
}

func (s *stubSource) CheckThreat(_ context.Context, reporterID string, _, _ float64) (models.ThreatSignal, error) {
	s.calls.Add(1)
	s.userID.Store(reporterID)
	return s.signal, s.err
}

type fixedIdentity string

func (i fixedIdentity) GetOrCreateID(context.Context) string { return string(i) }

func newTestPoller(source ThreatSource, clock clockwork.Clock) *Poller {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return New(source, fixedIdentity("device-1"), clock, time.Minute, logger)
}

func TestPoll_ReturnsSignal(t *testing.T) {
	expected := models.ThreatSignal{HasThreat: true, Type: models.ReportTypeFlood, Count: 2}
	source := &stubSource{signal: expected}
	p := newTestPoller(source, clockwork.NewFakeClock())

	assert.Equal(t, expected, p.Poll(context.Background(), 1, 2))
	assert.Equal(t, "device-1", source.userID.Load())
}

func TestPoll_FailsOpen(t *testing.T) {
	source := &stubSource{
		signal: models.ThreatSignal{HasThreat: true},
		err:    errors.New("timeout"),
	}
	p := newTestPoller(source, clockwork.NewFakeClock())

	signal := p.Poll(context.Background(), 1, 2)

	assert.False(t, signal.HasThreat)
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestRun_PollsOnInterval(t *testing.T) {
	source := &stubSource{signal: models.ThreatSignal{HasThreat: true, Type: models.ReportTypeFire, Count: 2}}
	clock := clockwork.NewFakeClock()
	p := newTestPoller(source, clock)

	signals := make(chan models.ThreatSignal, 4)
	locate := func(context.Context) (float64, float64, bool) { return 1, 2, true }
	handle := func(_ context.Context, s models.ThreatSignal) { signals <- s }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, locate, handle)
		close(done)
	}()

	// Первый опрос сразу при запуске
	select {
	case s := <-signals:
		assert.Equal(t, models.ReportTypeFire, s.Type)
	case <-time.After(time.Second):
		t.Fatal("expected immediate poll")
	}

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	select {
	case <-signals:
	case <-time.After(time.Second):
		t.Fatal("expected poll after interval")
	}

	cancel()
	<-done
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestRun_SkipsWhenLocationUnknown(t *testing.T) {
	source := &stubSource{}
	clock := clockwork.NewFakeClock()
	p := newTestPoller(source, clock)

	located := make(chan struct{}, 1)
	locate := func(context.Context) (float64, float64, bool) {
		located <- struct{}{}
		return 0, 0, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, locate, func(context.Context, models.ThreatSignal) { t.Error("handler must not be called") })
		close(done)
	}()

	<-located
	cancel()
	<-done
	assert.Zero(t, source.calls.Load())
}
