package sched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpal/internal/notify"
)

type captureDelivery struct {
	mu    sync.Mutex
	shown []string
}

func (c *captureDelivery) Show(_ context.Context, title, _ string, opts notify.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown = append(c.shown, opts.Tag)
}

func (c *captureDelivery) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.shown)
}

func TestScheduleFires(t *testing.T) {
	delivery := &captureDelivery{}
	s := New(delivery, nil)

	s.Schedule("expiry-p1", 20*time.Millisecond, "Parking expired", "", notify.Options{Tag: "expiry-p1"})
	require.Equal(t, []string{"expiry-p1"}, s.ListPending())

	waitFor(t, func() bool { return delivery.count() == 1 })
	assert.Empty(t, s.ListPending(), "fired alert should drop its bookkeeping entry")
}

func TestScheduleRejectsNonPositiveDelay(t *testing.T) {
	delivery := &captureDelivery{}
	s := New(delivery, nil)

	s.Schedule("expiry-p1", 0, "t", "b", notify.Options{Tag: "expiry-p1"})
	s.Schedule("expiry-p1", -time.Second, "t", "b", notify.Options{Tag: "expiry-p1"})

	assert.Empty(t, s.ListPending())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, delivery.count())
}

func TestScheduleSameIDSupersedes(t *testing.T) {
	delivery := &captureDelivery{}
	s := New(delivery, nil)

	s.Schedule("reminder-p1", 30*time.Millisecond, "first", "", notify.Options{Tag: "reminder-p1"})
	s.Schedule("reminder-p1", 30*time.Millisecond, "second", "", notify.Options{Tag: "reminder-p1"})

	require.Equal(t, []string{"reminder-p1"}, s.ListPending(), "only one pending alert per id")

	waitFor(t, func() bool { return delivery.count() >= 1 })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, delivery.count(), "superseded alert must not also fire")
}

func TestCancelPreventsFire(t *testing.T) {
	delivery := &captureDelivery{}
	s := New(delivery, nil)

	s.Schedule("expiry-p1", 30*time.Millisecond, "t", "b", notify.Options{Tag: "expiry-p1"})
	s.Cancel("expiry-p1")

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, delivery.count())
	assert.Empty(t, s.ListPending())
}

func TestCancelIsIdempotent(t *testing.T) {
	s := New(&captureDelivery{}, nil)

	s.Cancel("never-scheduled")
	s.Schedule("expiry-p1", time.Minute, "t", "b", notify.Options{Tag: "expiry-p1"})
	s.Cancel("expiry-p1")
	s.Cancel("expiry-p1")

	assert.Empty(t, s.ListPending())
}

func TestDistinctIDsAreIndependent(t *testing.T) {
	delivery := &captureDelivery{}
	s := New(delivery, nil)

	s.Schedule("reminder-p1", 20*time.Millisecond, "t", "b", notify.Options{Tag: "reminder-p1"})
	s.Schedule("expiry-p1", 20*time.Millisecond, "t", "b", notify.Options{Tag: "expiry-p1"})
	s.Cancel("reminder-p1")

	waitFor(t, func() bool { return delivery.count() == 1 })
	time.Sleep(50 * time.Millisecond)

	delivery.mu.Lock()
	defer delivery.mu.Unlock()
	require.Len(t, delivery.shown, 1)
	assert.Equal(t, "expiry-p1", delivery.shown[0])
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
