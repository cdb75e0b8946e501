package connectivity

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProber struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int32
}

func (p *stubProber) Ping(context.Context) error {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *stubProber) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func TestSetOnline_NotifiesOnlyOnTransition(t *testing.T) {
	m := NewMonitor(&stubProber{}, newLogger())
	var events []bool
	m.Subscribe(func(online bool) { events = append(events, online) })

	assert.False(t, m.Online())

	m.SetOnline(false)
	m.SetOnline(true)
	m.SetOnline(true)
	m.SetOnline(false)

	assert.Equal(t, []bool{true, false}, events)
}

func TestProbe_UpdatesState(t *testing.T) {
	prober := &stubProber{}
	m := NewMonitor(prober, newLogger())

	assert.True(t, m.Probe(context.Background()))
	assert.True(t, m.Online())

	prober.set(errors.New("unreachable"))
	assert.False(t, m.Probe(context.Background()))
	assert.False(t, m.Online())
}

func TestProbe_CancelledContextKeepsState(t *testing.T) {
	prober := &stubProber{err: context.Canceled}
	m := NewMonitor(prober, newLogger())
	m.SetOnline(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, m.Probe(ctx))
	assert.True(t, m.Online())
}

func TestRun_ProbesOnInterval(t *testing.T) {
	prober := &stubProber{}
	clock := clockwork.NewFakeClock()
	m := NewMonitor(prober, newLogger(), WithClock(clock), WithInterval(time.Second))

	restored := make(chan bool, 4)
	m.Subscribe(func(online bool) { restored <- online })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// Первая проверка сразу при старте
	select {
	case online := <-restored:
		assert.True(t, online)
	case <-time.After(time.Second):
		t.Fatal("expected connectivity restored event")
	}

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	prober.set(errors.New("down"))
	clock.Advance(time.Second)

	select {
	case online := <-restored:
		assert.False(t, online)
	case <-time.After(time.Second):
		t.Fatal("expected connectivity lost event")
	}

	cancel()
	<-done
	assert.GreaterOrEqual(t, prober.calls.Load(), int32(2))
}
