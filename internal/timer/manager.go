// Package timer owns per-session reminder and expiry timer state: arming,
// cancellation, extension, durable backup and resume reconciliation.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"parkpal/internal/metrics"
	"parkpal/internal/model"
	"parkpal/internal/notify"
	"parkpal/internal/repository"
)

// Scheduler arms and cancels pending alerts by logical id.
type Scheduler interface {
	Schedule(id string, delay time.Duration, title, body string, opts notify.Options)
	Cancel(id string)
	ListPending() []string
}

// BackupStore persists the engine's full state snapshot under a single key.
type BackupStore interface {
	Save(ctx context.Context, backup model.PersistedBackup) error
	Load(ctx context.Context) (*model.PersistedBackup, error)
}

// SessionWriter writes timing changes back to the authoritative session
// store. The engine never owns the session record, it only updates the
// fields an extension changes.
type SessionWriter interface {
	UpdateTiming(ctx context.Context, id string, expiry time.Time, extensionCount int) error
}

// RemoteCanceller withdraws alerts already relayed to the background agent.
// Cancellation there is a request, not a guarantee.
type RemoteCanceller interface {
	Ready() bool
	RelayCancel(ctx context.Context, id string) error
}

const (
	reminderTitle = "Parking reminder"
	expiryTitle   = "Parking expired"
)

// Manager is the timer engine. All state lives behind one mutex; timer
// callbacks and HTTP handlers alike re-enter through it, so no two
// operations ever interleave on shared state.
type Manager struct {
	mu     sync.Mutex
	timers map[string]*model.TimerState

	sched    Scheduler
	backups  BackupStore
	sessions SessionWriter
	remote   RemoteCanceller

	// persistMu keeps backup writes strictly ordered without holding the
	// state lock across storage IO.
	persistMu sync.Mutex

	logger *slog.Logger
	now    func() time.Time
}

func NewManager(sched Scheduler, backups BackupStore, sessions SessionWriter, remote RemoteCanceller, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		timers:   make(map[string]*model.TimerState),
		sched:    sched,
		backups:  backups,
		sessions: sessions,
		remote:   remote,
		logger:   logger,
		now:      time.Now,
	}
}

// SetNowFunc overrides the clock for deterministic tests.
func (m *Manager) SetNowFunc(now func() time.Time) {
	m.now = now
}

func reminderAlertID(locationID string) string { return "reminder-" + locationID }
func expiryAlertID(locationID string) string   { return "expiry-" + locationID }

// ScheduleTimer arms reminder and expiry alerts for a session. Sessions
// without an expiry, or with one already in the past, are rejected with a
// logged warning. Any previous timer for the same session is fully replaced.
func (m *Manager) ScheduleTimer(ctx context.Context, session *model.ParkingSession) {
	if session == nil || session.ExpiryTime == nil {
		m.logger.Warn("refusing to schedule timer without expiry")
		return
	}

	now := m.now().UTC()
	if !session.ExpiryTime.After(now) {
		m.logger.Warn("refusing to schedule timer with past expiry",
			"location_id", session.ID,
			"expiry", session.ExpiryTime)
		return
	}

	m.mu.Lock()
	m.scheduleLocked(ctx, session, now)
	m.updateGaugeLocked()
	m.mu.Unlock()

	m.persist(ctx)
}

// CancelTimer removes the timer state and both pending alerts for a session.
// Cancelling a session with no timer is a no-op.
func (m *Manager) CancelTimer(ctx context.Context, locationID string) {
	m.mu.Lock()
	m.clearLocked(ctx, locationID)
	m.updateGaugeLocked()
	m.mu.Unlock()

	m.persist(ctx)
}

// ExtendTimer pushes the expiry out by additionalMinutes and bumps the
// extension count, re-deriving the reminder against the new expiry. The new
// timing is written back to the session store.
func (m *Manager) ExtendTimer(ctx context.Context, locationID string, additionalMinutes int, session *model.ParkingSession) {
	if session == nil || additionalMinutes <= 0 {
		m.logger.Warn("refusing invalid extension",
			"location_id", locationID,
			"additional_minutes", additionalMinutes)
		return
	}

	var base *time.Time
	if session.ExpiryTime != nil {
		value := *session.ExpiryTime
		base = &value
	}
	m.mu.Lock()
	if state, ok := m.timers[locationID]; ok {
		value := state.ExpiryTime
		base = &value
	}
	m.mu.Unlock()
	if base == nil {
		m.logger.Warn("refusing to extend session without expiry", "location_id", locationID)
		return
	}

	newExpiry := base.Add(time.Duration(additionalMinutes) * time.Minute).UTC()
	extended := *session
	extended.ID = locationID
	extended.ExpiryTime = &newExpiry
	extended.ExtensionCount = session.ExtensionCount + 1

	now := m.now().UTC()
	m.mu.Lock()
	m.scheduleLocked(ctx, &extended, now)
	m.updateGaugeLocked()
	m.mu.Unlock()

	if m.sessions != nil {
		if err := m.sessions.UpdateTiming(ctx, locationID, newExpiry, extended.ExtensionCount); err != nil {
			m.logger.Error("failed to write extension back to session store",
				"location_id", locationID,
				"error", err)
		}
	}

	m.persist(ctx)
}

// SyncWithSessions makes the engine match the authoritative session list:
// every current timer is cancelled, then one is re-armed for each session
// whose expiry is still in the future.
func (m *Manager) SyncWithSessions(ctx context.Context, sessions []model.ParkingSession) {
	now := m.now().UTC()

	m.mu.Lock()
	for id := range m.timers {
		m.clearLocked(ctx, id)
	}
	for i := range sessions {
		session := &sessions[i]
		if !session.HasExpiry(now) {
			continue
		}
		m.scheduleLocked(ctx, session, now)
	}
	m.updateGaugeLocked()
	m.mu.Unlock()

	m.persist(ctx)
}

// OnHidden snapshots all timer state to durable storage. In-memory alert
// timers do not survive process termination; the backup is what lets the
// next start pick the schedule back up.
func (m *Manager) OnHidden(ctx context.Context) {
	m.persist(ctx)
}

// Restore loads the persisted backup at startup. Entries whose expiry has
// already elapsed are discarded; the rest are kept un-armed until the next
// visibility transition re-derives their delays.
func (m *Manager) Restore(ctx context.Context) {
	if m.backups == nil {
		return
	}

	backup, err := m.backups.Load(ctx)
	if err != nil {
		if err == repository.ErrNotFound {
			return
		}
		metrics.BackupErrors.Inc()
		m.logger.Error("failed to load timer backup", "error", err)
		return
	}

	now := m.now().UTC()
	restored, dropped := 0, 0

	m.mu.Lock()
	for _, state := range backup.Timers {
		if !state.ExpiryTime.After(now) {
			// Already expired while we were gone. The observed behavior is a
			// silent drop: no missed-expiry alert is synthesized.
			dropped++
			continue
		}
		kept := state
		kept.ReminderScheduled = false
		kept.ExpiryScheduled = false
		m.timers[kept.LocationID] = &kept
		restored++
	}
	m.updateGaugeLocked()
	m.mu.Unlock()

	m.logger.Info("restored timer backup",
		"restored", restored,
		"dropped_expired", dropped,
		"saved_at", time.UnixMilli(backup.SavedAt).UTC())
}

// OnVisible re-arms every restored-but-unarmed timer using only what the
// backup carried: ids and fire times. A timer whose remaining delay has gone
// non-positive in the meantime is treated as expired and removed.
func (m *Manager) OnVisible(ctx context.Context) {
	now := m.now().UTC()

	m.mu.Lock()
	for id, state := range m.timers {
		if state.ExpiryScheduled {
			continue
		}
		if !state.ExpiryTime.After(now) {
			delete(m.timers, id)
			continue
		}
		m.armLocked(state, "", now)
	}
	m.updateGaugeLocked()
	m.mu.Unlock()

	m.persist(ctx)
}

// ListActiveTimers returns the location ids of all live timers, sorted.
func (m *Manager) ListActiveTimers() []string {
	now := m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(now)

	ids := make([]string, 0, len(m.timers))
	for id := range m.timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetRemainingTime returns the time left until a session's expiry. The
// second return is false when no timer is active for the id.
func (m *Manager) GetRemainingTime(locationID string) (time.Duration, bool) {
	now := m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(now)

	state, ok := m.timers[locationID]
	if !ok {
		return 0, false
	}
	return state.ExpiryTime.Sub(now), true
}

// IsActive reports whether a live timer exists for the session.
func (m *Manager) IsActive(locationID string) bool {
	_, ok := m.GetRemainingTime(locationID)
	return ok
}

// scheduleLocked replaces any existing timer for the session and arms fresh
// alerts. Caller holds m.mu and has verified the expiry is in the future.
func (m *Manager) scheduleLocked(ctx context.Context, session *model.ParkingSession, now time.Time) {
	m.clearLocked(ctx, session.ID)

	expiry := session.ExpiryTime.UTC()
	state := &model.TimerState{
		LocationID: session.ID,
		ExpiryTime: expiry,
		CreatedAt:  now,
	}
	if session.ReminderMinutes != nil && *session.ReminderMinutes > 0 {
		reminderAt := expiry.Add(-time.Duration(*session.ReminderMinutes) * time.Minute)
		state.ReminderTime = &reminderAt
	}

	m.armLocked(state, sessionLabel(session), now)
	m.timers[session.ID] = state
}

// armLocked asks the scheduler for a reminder alert (when the reminder time
// is still ahead) and an expiry alert. The note is empty when re-arming from
// a backup, which only carries ids and times.
func (m *Manager) armLocked(state *model.TimerState, note string, now time.Time) {
	if state.ReminderTime != nil && state.ReminderTime.After(now) {
		leadMinutes := int(state.ExpiryTime.Sub(*state.ReminderTime) / time.Minute)
		m.sched.Schedule(
			reminderAlertID(state.LocationID),
			state.ReminderTime.Sub(now),
			reminderTitle,
			reminderBody(note, leadMinutes),
			notify.Options{Tag: reminderAlertID(state.LocationID), Sound: true},
		)
		state.ReminderScheduled = true
	}

	if delay := state.ExpiryTime.Sub(now); delay > 0 {
		m.sched.Schedule(
			expiryAlertID(state.LocationID),
			delay,
			expiryTitle,
			expiryBody(note),
			notify.Options{Tag: expiryAlertID(state.LocationID), Sound: true, Sticky: true},
		)
		state.ExpiryScheduled = true
	}
}

// clearLocked removes the state and both alerts for a session, and asks the
// agent to withdraw anything already relayed. Caller holds m.mu.
func (m *Manager) clearLocked(ctx context.Context, locationID string) {
	m.sched.Cancel(reminderAlertID(locationID))
	m.sched.Cancel(expiryAlertID(locationID))

	if m.remote != nil && m.remote.Ready() {
		// Best effort: the agent may have already committed to showing it.
		if err := m.remote.RelayCancel(ctx, reminderAlertID(locationID)); err != nil {
			m.logger.Debug("remote cancel failed", "location_id", locationID, "error", err)
		}
		if err := m.remote.RelayCancel(ctx, expiryAlertID(locationID)); err != nil {
			m.logger.Debug("remote cancel failed", "location_id", locationID, "error", err)
		}
	}

	delete(m.timers, locationID)
}

// pruneLocked drops states whose expiry has elapsed. The expiry alert for
// such a state has already fired (or never will, post-restore); either way
// the state must not outlive its expiry time.
func (m *Manager) pruneLocked(now time.Time) {
	for id, state := range m.timers {
		if !state.ExpiryTime.After(now) {
			delete(m.timers, id)
		}
	}
	m.updateGaugeLocked()
}

func (m *Manager) updateGaugeLocked() {
	metrics.TimersActive.Set(float64(len(m.timers)))
}

// persist overwrites the durable backup with the full current snapshot.
// Failures are logged and never block in-memory scheduling.
func (m *Manager) persist(ctx context.Context) {
	if m.backups == nil {
		return
	}

	m.mu.Lock()
	snapshot := model.PersistedBackup{
		SavedAt: m.now().UTC().UnixMilli(),
		Timers:  make([]model.TimerState, 0, len(m.timers)),
	}
	for _, state := range m.timers {
		snapshot.Timers = append(snapshot.Timers, *state)
	}
	m.mu.Unlock()

	sort.Slice(snapshot.Timers, func(i, j int) bool {
		return snapshot.Timers[i].LocationID < snapshot.Timers[j].LocationID
	})

	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	if err := m.backups.Save(ctx, snapshot); err != nil {
		metrics.BackupErrors.Inc()
		m.logger.Error("failed to write timer backup", "error", err)
		return
	}
	metrics.BackupWrites.Inc()
}

func sessionLabel(session *model.ParkingSession) string {
	if session.Label != "" {
		return session.Label
	}
	return session.Note
}

func reminderBody(note string, leadMinutes int) string {
	if note != "" {
		return fmt.Sprintf("%s: parking expires in %d minutes.", note, leadMinutes)
	}
	return fmt.Sprintf("Your parking expires in %d minutes.", leadMinutes)
}

func expiryBody(note string) string {
	if note != "" {
		return fmt.Sprintf("%s: parking time is up.", note)
	}
	return "Your parking time is up."
}
