package cooldown

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shenikar/incident_reporting_system/internal/device/storage"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker() (*Tracker, *storage.MemoryStore, *clockwork.FakeClock) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	store := storage.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	return New(store, clock, 24*time.Hour, logger), store, clock
}

func TestShouldSuppress_WithinWindow(t *testing.T) {
	tracker, _, clock := newTestTracker()
	ctx := context.Background()

	assert.False(t, tracker.ShouldSuppress(ctx, models.ReportTypeFlood))

	require.NoError(t, tracker.MarkResponded(ctx, models.ReportTypeFlood))
	assert.True(t, tracker.ShouldSuppress(ctx, models.ReportTypeFlood))

	clock.Advance(23*time.Hour + 59*time.Minute)
	assert.True(t, tracker.ShouldSuppress(ctx, models.ReportTypeFlood))

	clock.Advance(time.Minute)
	assert.False(t, tracker.ShouldSuppress(ctx, models.ReportTypeFlood))
}

func TestShouldSuppress_PerType(t *testing.T) {
	tracker, _, _ := newTestTracker()
	ctx := context.Background()

	require.NoError(t, tracker.MarkResponded(ctx, models.ReportTypeFire))

	assert.True(t, tracker.ShouldSuppress(ctx, models.ReportTypeFire))
	assert.False(t, tracker.ShouldSuppress(ctx, models.ReportTypeFlood))
}

func TestShouldSuppress_StorageErrorDoesNotSuppress(t *testing.T) {
	tracker, store, _ := newTestTracker()
	ctx := context.Background()

	require.NoError(t, tracker.MarkResponded(ctx, models.ReportTypeMedical))
	store.FailWith(errors.New("io error"))

	assert.False(t, tracker.ShouldSuppress(ctx, models.ReportTypeMedical))
	assert.Error(t, tracker.MarkResponded(ctx, models.ReportTypeMedical))
}

func TestNew_Defaults(t *testing.T) {
	tracker := New(storage.NewMemoryStore(), nil, 0, logrus.New())

	assert.Equal(t, DefaultWindow, tracker.window)
	assert.NotNil(t, tracker.clock)
}
