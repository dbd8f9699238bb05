package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"parkpal/internal/notify"
)

const (
	requestTimeout = 2 * time.Second

	// DefaultRegisterBackoff is the retry interval after a failed agent
	// registration.
	DefaultRegisterBackoff = 5 * time.Second
)

// Bridge relays schedule and cancel instructions to the agent daemon over
// NATS and polls it to verify delivery. Registration is best-effort
// infrastructure: failures are retried on a fixed backoff and never surfaced
// to callers.
type Bridge struct {
	nc      *nats.Conn
	name    string
	backoff time.Duration
	logger  *slog.Logger

	registered atomic.Bool
}

// Dial connects to NATS and returns an unregistered bridge. Call Register
// (or StartRegistration) before relying on the background path.
func Dial(url, name string, backoff time.Duration, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if backoff <= 0 {
		backoff = DefaultRegisterBackoff
	}

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to agent transport: %w", err)
	}

	return &Bridge{nc: nc, name: name, backoff: backoff, logger: logger}, nil
}

// Ready reports whether the background path is usable: connected and with a
// completed agent handshake.
func (b *Bridge) Ready() bool {
	return b.nc != nil && b.nc.Status() == nats.CONNECTED && b.registered.Load()
}

// Register performs one registration handshake with the agent. Idempotent;
// returns true when the agent acknowledged, now or previously.
func (b *Bridge) Register(ctx context.Context) bool {
	if b.registered.Load() {
		return true
	}

	data, err := json.Marshal(RegisterRequest{Name: b.name})
	if err != nil {
		b.logger.Warn("marshal register request", "error", err)
		return false
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	msg, err := b.nc.RequestWithContext(reqCtx, SubjectRegister, data)
	if err != nil {
		b.logger.Warn("agent registration failed", "error", err)
		return false
	}

	var resp RegisterResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil || !resp.OK {
		b.logger.Warn("agent rejected registration", "error", err)
		return false
	}

	b.registered.Store(true)
	b.logger.Info("background agent registered", "agent", resp.Agent)
	return true
}

// StartRegistration registers in the background, retrying on the configured
// backoff until it succeeds or ctx is done.
func (b *Bridge) StartRegistration(ctx context.Context) {
	go func() {
		for {
			if b.Register(ctx) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.backoff):
			}
		}
	}()
}

// RelaySchedule hands one alert to the agent with its absolute fire time.
func (b *Bridge) RelaySchedule(ctx context.Context, id string, fireAt time.Time, title, body string, opts notify.Options) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("relay schedule %s: %w", id, err)
	}

	data, err := json.Marshal(ScheduleMessage{
		ID:      id,
		FireAt:  fireAt.UTC(),
		Title:   title,
		Body:    body,
		Options: opts,
	})
	if err != nil {
		return fmt.Errorf("marshal schedule message: %w", err)
	}

	if err := b.nc.Publish(SubjectSchedule, data); err != nil {
		return fmt.Errorf("relay schedule %s: %w", id, err)
	}
	return nil
}

// RelayCancel asks the agent to drop a relayed alert.
func (b *Bridge) RelayCancel(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("relay cancel %s: %w", id, err)
	}

	data, err := json.Marshal(CancelMessage{ID: id})
	if err != nil {
		return fmt.Errorf("marshal cancel message: %w", err)
	}

	if err := b.nc.Publish(SubjectCancel, data); err != nil {
		return fmt.Errorf("relay cancel %s: %w", id, err)
	}
	return nil
}

// VerifyShown asks the agent whether it actually displayed the alert.
func (b *Bridge) VerifyShown(ctx context.Context, id string) (bool, error) {
	data, err := json.Marshal(VerifyRequest{ID: id})
	if err != nil {
		return false, fmt.Errorf("marshal verify request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	msg, err := b.nc.RequestWithContext(reqCtx, SubjectVerify, data)
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", id, err)
	}

	var resp VerifyResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return false, fmt.Errorf("unmarshal verify response: %w", err)
	}
	return resp.Shown, nil
}

// Close drains the connection.
func (b *Bridge) Close() {
	if b.nc != nil {
		b.nc.Close()
	}
}
