// Package agent connects the engine to the background notification agent, a
// separate process that can show alerts even when the application itself is
// not running in the foreground.
package agent

import (
	"time"

	"parkpal/internal/notify"
)

// NATS subjects shared by the bridge and the agent daemon.
const (
	SubjectRegister = "alerts.agent.register"
	SubjectSchedule = "alerts.agent.schedule"
	SubjectCancel   = "alerts.agent.cancel"
	SubjectVerify   = "alerts.agent.verify"
)

// ScheduleMessage relays one alert to the agent. FireAt is absolute: the
// agent may not process the message immediately and relative delays drift.
type ScheduleMessage struct {
	ID      string         `json:"id"`
	FireAt  time.Time      `json:"fireAt"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Options notify.Options `json:"options"`
}

// CancelMessage withdraws a relayed alert. Best effort: the agent may have
// already shown it.
type CancelMessage struct {
	ID string `json:"id"`
}

// RegisterRequest announces a server instance to the agent.
type RegisterRequest struct {
	Name string `json:"name"`
}

// RegisterResponse acknowledges a registration.
type RegisterResponse struct {
	OK    bool   `json:"ok"`
	Agent string `json:"agent"`
}

// VerifyRequest asks whether the agent showed a given alert.
type VerifyRequest struct {
	ID string `json:"id"`
}

// VerifyResponse answers a verification poll.
type VerifyResponse struct {
	ID    string `json:"id"`
	Shown bool   `json:"shown"`
}
