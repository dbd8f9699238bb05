package agent

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"parkpal/internal/notify"
)

// shownRetention is how long the daemon remembers a displayed alert so
// verification polls can find it.
const shownRetention = time.Hour

// Daemon is the background notification agent. It runs as its own process,
// keeps its own pending alert set and fires alerts on its own clock, so
// delivery does not depend on the application being foregrounded.
type Daemon struct {
	name     string
	notifier notify.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	shown   map[string]time.Time

	subs []*nats.Subscription
}

func NewDaemon(name string, notifier notify.Notifier, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		name:     name,
		notifier: notifier,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
		shown:    make(map[string]time.Time),
	}
}

// Listen subscribes the daemon to its subjects on the given connection.
func (d *Daemon) Listen(nc *nats.Conn) error {
	handlers := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{SubjectRegister, d.onRegister},
		{SubjectSchedule, d.onSchedule},
		{SubjectCancel, d.onCancel},
		{SubjectVerify, d.onVerify},
	}

	for _, h := range handlers {
		sub, err := nc.Subscribe(h.subject, h.handler)
		if err != nil {
			return err
		}
		d.subs = append(d.subs, sub)
	}

	d.logger.Info("agent listening", "agent", d.name)
	return nil
}

// Stop unsubscribes and stops all pending timers.
func (d *Daemon) Stop() {
	for _, sub := range d.subs {
		_ = sub.Unsubscribe()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for id, timer := range d.pending {
		timer.Stop()
		delete(d.pending, id)
	}
}

func (d *Daemon) onRegister(msg *nats.Msg) {
	var req RegisterRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		d.logger.Warn("bad register request", "error", err)
		return
	}

	d.logger.Info("server registered", "server", req.Name)
	d.reply(msg, RegisterResponse{OK: true, Agent: d.name})
}

// onSchedule arms the relayed alert. An id that is already pending is
// replaced, mirroring the scheduler's single-writer-wins rule. A fire time
// already in the past fires immediately.
func (d *Daemon) onSchedule(msg *nats.Msg) {
	var req ScheduleMessage
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		d.logger.Warn("bad schedule message", "error", err)
		return
	}

	d.Schedule(req)
}

// Schedule arms one alert on the daemon's own clock.
func (d *Daemon) Schedule(req ScheduleMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[req.ID]; ok {
		prev.Stop()
		delete(d.pending, req.ID)
	}

	delay := time.Until(req.FireAt)
	if delay <= 0 {
		d.fireLocked(req)
		return
	}

	d.pending[req.ID] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.pending[req.ID]; !ok {
			return
		}
		delete(d.pending, req.ID)
		d.fireLocked(req)
	})
}

func (d *Daemon) onCancel(msg *nats.Msg) {
	var req CancelMessage
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		d.logger.Warn("bad cancel message", "error", err)
		return
	}

	d.Cancel(req.ID)
}

// Cancel drops a pending alert. Already-shown alerts are unaffected.
func (d *Daemon) Cancel(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.pending[id]; ok {
		timer.Stop()
		delete(d.pending, id)
	}
}

func (d *Daemon) onVerify(msg *nats.Msg) {
	var req VerifyRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		d.logger.Warn("bad verify request", "error", err)
		return
	}

	d.reply(msg, VerifyResponse{ID: req.ID, Shown: d.WasShown(req.ID)})
}

// WasShown reports whether the daemon displayed the alert recently.
func (d *Daemon) WasShown(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.shown[id]
	return ok
}

// fireLocked shows the alert and records it for verification. Caller holds
// d.mu.
func (d *Daemon) fireLocked(req ScheduleMessage) {
	var err error
	if req.Options.Sound {
		err = d.notifier.SendWithSound(req.Title, req.Body)
	} else {
		err = d.notifier.Send(req.Title, req.Body)
	}
	if err != nil {
		d.logger.Warn("agent failed to show alert", "id", req.ID, "error", err)
		return
	}

	now := time.Now()
	d.shown[req.ID] = now
	for id, at := range d.shown {
		if now.Sub(at) > shownRetention {
			delete(d.shown, id)
		}
	}
	d.logger.Debug("alert shown", "id", req.ID)
}

func (d *Daemon) reply(msg *nats.Msg, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		d.logger.Warn("marshal reply", "subject", msg.Subject, "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		d.logger.Warn("send reply", "subject", msg.Subject, "error", err)
	}
}
