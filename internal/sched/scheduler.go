// Package sched arms one-shot alert timers keyed by a logical alert id.
package sched

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"parkpal/internal/notify"
)

// Delivery shows an alert when its timer fires.
type Delivery interface {
	Show(ctx context.Context, title, body string, opts notify.Options)
}

type entry struct {
	timer  *time.Timer
	gen    uint64
	fireAt time.Time
}

// Scheduler owns the pending alert set. Scheduling an id that is already
// pending cancels the old entry first, so at most one alert per id can ever
// be in flight. Cancellation works by invalidating the entry's generation,
// not by flagging the callback: a fired timer that lost the race checks the
// generation under the lock and delivers nothing.
type Scheduler struct {
	mu       sync.Mutex
	pending  map[string]*entry
	delivery Delivery
	logger   *slog.Logger
	gen      uint64
}

func New(delivery Delivery, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		pending:  make(map[string]*entry),
		delivery: delivery,
		logger:   logger,
	}
}

// Schedule arms an alert to fire after delay. A non-positive delay is a
// caller error that should have been filtered upstream; it is logged and
// dropped.
func (s *Scheduler) Schedule(id string, delay time.Duration, title, body string, opts notify.Options) {
	if delay <= 0 {
		s.logger.Warn("rejected alert with non-positive delay", "id", id, "delay", delay)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[id]; ok {
		prev.timer.Stop()
		delete(s.pending, id)
	}

	s.gen++
	gen := s.gen
	e := &entry{gen: gen, fireAt: time.Now().Add(delay)}
	e.timer = time.AfterFunc(delay, func() {
		s.fire(id, gen, title, body, opts)
	})
	s.pending[id] = e
}

// Cancel prevents a pending alert from firing. Cancelling an unknown id is a
// no-op.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.pending[id]; ok {
		e.timer.Stop()
		delete(s.pending, id)
	}
}

// ListPending returns the ids of all not-yet-fired alerts, sorted.
func (s *Scheduler) ListPending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Scheduler) fire(id string, gen uint64, title, body string, opts notify.Options) {
	s.mu.Lock()
	e, ok := s.pending[id]
	if !ok || e.gen != gen {
		// Cancelled or superseded between the tick and this lock.
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.mu.Unlock()

	s.delivery.Show(context.Background(), title, body, opts)
}
