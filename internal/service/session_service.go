package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "parkpal/internal/errors"
	"parkpal/internal/model"
	"parkpal/internal/repository"
	"parkpal/internal/timer"
)

// SessionService owns the parking session lifecycle. Every mutation that
// changes a session's timing is mirrored into the timer engine so alerts
// always track the stored record.
type SessionService struct {
	sessions *repository.SessionRepository
	timers   *timer.Manager
}

func NewSessionService(sessions *repository.SessionRepository, timers *timer.Manager) *SessionService {
	return &SessionService{sessions: sessions, timers: timers}
}

type CreateSessionInput struct {
	Label           string     `json:"label"`
	Note            string     `json:"note"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	CostPerHour     float64    `json:"costPerHour"`
	ExpiryTime      *time.Time `json:"expiryTime"`
	ReminderMinutes *int       `json:"reminderMinutes"`
}

type UpdateSessionInput struct {
	Label           *string    `json:"label"`
	Note            *string    `json:"note"`
	CostPerHour     *float64   `json:"costPerHour"`
	ExpiryTime      *time.Time `json:"expiryTime"`
	ClearExpiry     bool       `json:"clearExpiry"`
	ReminderMinutes *int       `json:"reminderMinutes"`
}

type ExtendSessionInput struct {
	AdditionalMinutes int `json:"additionalMinutes"`
}

func (s *SessionService) Create(ctx context.Context, userID string, input CreateSessionInput) (*model.ParkingSession, *apperrors.APIError) {
	if apiErr := validateTiming(input.ExpiryTime, input.ReminderMinutes); apiErr != nil {
		return nil, apiErr
	}

	now := time.Now().UTC()
	session := model.ParkingSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		Label:           input.Label,
		Note:            input.Note,
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		CostPerHour:     input.CostPerHour,
		ExpiryTime:      normalizeExpiry(input.ExpiryTime),
		ReminderMinutes: normalizeReminder(input.ExpiryTime, input.ReminderMinutes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.sessions.Create(ctx, &session); err != nil {
		return nil, apperrors.Internal("failed to create session")
	}

	if session.HasExpiry(now) {
		s.timers.ScheduleTimer(ctx, &session)
	}

	return &session, nil
}

func (s *SessionService) List(ctx context.Context, userID string) ([]model.ParkingSession, *apperrors.APIError) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list sessions")
	}
	return sessions, nil
}

func (s *SessionService) Get(ctx context.Context, userID, id string) (*model.ParkingSession, *apperrors.APIError) {
	return s.getOwned(ctx, userID, id)
}

func (s *SessionService) Update(ctx context.Context, userID, id string, input UpdateSessionInput) (*model.ParkingSession, *apperrors.APIError) {
	session, apiErr := s.getOwned(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}

	if input.Label != nil {
		session.Label = *input.Label
	}
	if input.Note != nil {
		session.Note = *input.Note
	}
	if input.CostPerHour != nil {
		session.CostPerHour = *input.CostPerHour
	}
	if input.ClearExpiry {
		session.ExpiryTime = nil
		session.ReminderMinutes = nil
	} else if input.ExpiryTime != nil {
		if apiErr := validateTiming(input.ExpiryTime, input.ReminderMinutes); apiErr != nil {
			return nil, apiErr
		}
		session.ExpiryTime = normalizeExpiry(input.ExpiryTime)
		session.ReminderMinutes = normalizeReminder(input.ExpiryTime, input.ReminderMinutes)
	} else if input.ReminderMinutes != nil {
		if apiErr := validateTiming(session.ExpiryTime, input.ReminderMinutes); apiErr != nil {
			return nil, apiErr
		}
		session.ReminderMinutes = normalizeReminder(session.ExpiryTime, input.ReminderMinutes)
	}

	now := time.Now().UTC()
	session.UpdatedAt = now
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.Internal("failed to update session")
	}

	if session.HasExpiry(now) {
		s.timers.ScheduleTimer(ctx, session)
	} else {
		s.timers.CancelTimer(ctx, session.ID)
	}

	return session, nil
}

func (s *SessionService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	if _, apiErr := s.getOwned(ctx, userID, id); apiErr != nil {
		return apiErr
	}

	s.timers.CancelTimer(ctx, id)

	if err := s.sessions.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("session_not_found", "session not found")
		}
		return apperrors.Internal("failed to delete session")
	}
	return nil
}

// Extend pushes the session's expiry out and bumps the extension count. The
// engine performs the extension and writes the new timing back; the returned
// session is re-read so the caller sees the committed values.
func (s *SessionService) Extend(ctx context.Context, userID, id string, input ExtendSessionInput) (*model.ParkingSession, *apperrors.APIError) {
	if input.AdditionalMinutes <= 0 {
		return nil, apperrors.BadRequest("invalid_extension", "additionalMinutes must be positive")
	}

	session, apiErr := s.getOwned(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}
	if session.ExpiryTime == nil {
		return nil, apperrors.BadRequest("no_expiry", "session has no expiry to extend")
	}

	s.timers.ExtendTimer(ctx, id, input.AdditionalMinutes, session)

	updated, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("failed to reload session")
	}
	return updated, nil
}

// StopTimer cancels the session's alerts and clears its timing without
// deleting the record itself.
func (s *SessionService) StopTimer(ctx context.Context, userID, id string) (*model.ParkingSession, *apperrors.APIError) {
	if _, apiErr := s.getOwned(ctx, userID, id); apiErr != nil {
		return nil, apiErr
	}

	s.timers.CancelTimer(ctx, id)
	if err := s.sessions.ClearTiming(ctx, id); err != nil {
		return nil, apperrors.Internal("failed to clear session timing")
	}

	updated, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("failed to reload session")
	}
	return updated, nil
}

// Sync rebuilds the timer engine from the stored session list. Returns the
// number of timers active afterwards.
func (s *SessionService) Sync(ctx context.Context) (int, *apperrors.APIError) {
	sessions, err := s.sessions.ListWithExpiry(ctx)
	if err != nil {
		return 0, apperrors.Internal("failed to load sessions for sync")
	}

	s.timers.SyncWithSessions(ctx, sessions)
	return len(s.timers.ListActiveTimers()), nil
}

func (s *SessionService) getOwned(ctx context.Context, userID, id string) (*model.ParkingSession, *apperrors.APIError) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("session_not_found", "session not found")
		}
		return nil, apperrors.Internal("failed to load session")
	}
	if session.UserID != userID {
		// Ownership failures look identical to missing sessions.
		return nil, apperrors.NotFound("session_not_found", "session not found")
	}
	return session, nil
}

func validateTiming(expiry *time.Time, reminderMinutes *int) *apperrors.APIError {
	if reminderMinutes != nil {
		if expiry == nil {
			return apperrors.BadRequest("invalid_reminder", "reminder requires an expiry time")
		}
		if *reminderMinutes < 0 || *reminderMinutes > model.MaxReminderMinutes {
			return apperrors.BadRequest("invalid_reminder", "reminderMinutes is out of range")
		}
	}
	if expiry != nil && !expiry.After(time.Now().UTC()) {
		return apperrors.BadRequest("invalid_expiry", "expiry time must be in the future")
	}
	return nil
}

func normalizeExpiry(expiry *time.Time) *time.Time {
	if expiry == nil {
		return nil
	}
	utc := expiry.UTC()
	return &utc
}

// normalizeReminder applies the default lead time when an expiry is set
// without an explicit reminder, and treats zero as "no reminder".
func normalizeReminder(expiry *time.Time, reminderMinutes *int) *int {
	if expiry == nil {
		return nil
	}
	if reminderMinutes == nil {
		def := model.DefaultReminderMinutes
		return &def
	}
	if *reminderMinutes == 0 {
		return nil
	}
	value := *reminderMinutes
	return &value
}
