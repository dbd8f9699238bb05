package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"parkpal/internal/metrics"
)

// AgentBridge is the background-capable delivery path. Implemented by the
// NATS bridge; nil when no agent transport is configured.
type AgentBridge interface {
	Ready() bool
	RelaySchedule(ctx context.Context, id string, fireAt time.Time, title, body string, opts Options) error
	RelayCancel(ctx context.Context, id string) error
	VerifyShown(ctx context.Context, id string) (bool, error)
}

// Adapter picks a delivery path for each alert: immediate platform
// notification while the app is visible, the background agent otherwise, and
// the passive inbox when neither is possible. Show never reports an error to
// the caller; every failure degrades to a lesser path.
type Adapter struct {
	notifier    Notifier
	gate        *Gate
	inbox       *Inbox
	bridge      AgentBridge
	verifyDelay time.Duration
	logger      *slog.Logger

	visible atomic.Bool
}

func NewAdapter(notifier Notifier, gate *Gate, inbox *Inbox, bridge AgentBridge, verifyDelay time.Duration, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if verifyDelay <= 0 {
		verifyDelay = 3 * time.Second
	}
	a := &Adapter{
		notifier:    notifier,
		gate:        gate,
		inbox:       inbox,
		bridge:      bridge,
		verifyDelay: verifyDelay,
		logger:      logger,
	}
	a.visible.Store(true)
	return a
}

// SetVisible records whether the application is currently foregrounded.
func (a *Adapter) SetVisible(visible bool) {
	a.visible.Store(visible)
}

// Visible reports the last known foreground state.
func (a *Adapter) Visible() bool {
	return a.visible.Load()
}

// Show delivers one alert. It checks capability and permission first, then
// picks a path and degrades on failure.
func (a *Adapter) Show(ctx context.Context, title, body string, opts Options) {
	if a.notifier == nil || !a.notifier.IsSupported() {
		a.passive(title, body, "alerts unsupported on this platform")
		return
	}

	status := a.gate.Status()
	if status == PermissionUndetermined {
		// Ask exactly once, then retry this same call with the answer.
		status = a.gate.Request()
	}
	if status != PermissionGranted {
		a.passive(title, body, "notification permission not granted")
		return
	}

	if !a.Visible() && a.bridge != nil && a.bridge.Ready() {
		a.background(ctx, title, body, opts)
		return
	}

	a.immediate(title, body, opts)
}

// background relays the alert to the agent and verifies it was shown. A relay
// error falls back to the immediate path even though the app is not
// foregrounded; a possibly invisible alert beats no alert at all.
func (a *Adapter) background(ctx context.Context, title, body string, opts Options) {
	fireAt := time.Now().UTC()
	if err := a.bridge.RelaySchedule(ctx, opts.Tag, fireAt, title, body, opts); err != nil {
		a.logger.Warn("background delivery failed, using immediate path",
			"tag", opts.Tag,
			"error", err)
		metrics.AlertFallbacks.Inc()
		a.immediate(title, body, opts)
		return
	}

	metrics.AlertsDelivered.WithLabelValues("background").Inc()
	a.scheduleVerification(title, body, opts)
}

// scheduleVerification polls the agent shortly after the expected fire time
// and fires a one-time immediate fallback when the alert never appeared.
func (a *Adapter) scheduleVerification(title, body string, opts Options) {
	time.AfterFunc(a.verifyDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		shown, err := a.bridge.VerifyShown(ctx, opts.Tag)
		if err != nil {
			a.logger.Warn("alert verification failed", "tag", opts.Tag, "error", err)
		}
		if shown {
			return
		}

		metrics.VerificationFailures.Inc()
		a.logger.Warn("relayed alert was not shown, falling back", "tag", opts.Tag)
		a.immediate(title, body, opts)
	})
}

func (a *Adapter) immediate(title, body string, opts Options) {
	var err error
	if opts.Sound {
		err = a.notifier.SendWithSound(title, body)
	} else {
		err = a.notifier.Send(title, body)
	}
	if err != nil {
		a.passive(title, body, err.Error())
		return
	}
	metrics.AlertsDelivered.WithLabelValues("foreground").Inc()
}

func (a *Adapter) passive(title, body, reason string) {
	a.logger.Info("alert degraded to in-app message", "title", title, "reason", reason)
	if a.inbox != nil {
		a.inbox.Add(title, body)
	}
	metrics.AlertsDelivered.WithLabelValues("inbox").Inc()
}
