package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parkpal/internal/model"
)

// SessionRepository is the durable store for parking sessions. The timer
// engine treats it as the authoritative session list and writes timing
// changes (expiry, extension count) back through it.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, label, note, latitude, longitude, cost_per_hour,
	expiry_time, reminder_minutes, extension_count, created_at, updated_at`

func (r *SessionRepository) Create(ctx context.Context, session *model.ParkingSession) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO parking_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Label,
		session.Note,
		session.Latitude,
		session.Longitude,
		session.CostPerHour,
		formatNullableTime(session.ExpiryTime),
		nullableInt(session.ReminderMinutes),
		session.ExtensionCount,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, session *model.ParkingSession) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE parking_sessions
		 SET label = ?,
		     note = ?,
		     latitude = ?,
		     longitude = ?,
		     cost_per_hour = ?,
		     expiry_time = ?,
		     reminder_minutes = ?,
		     extension_count = ?,
		     updated_at = ?
		 WHERE id = ?`,
		session.Label,
		session.Note,
		session.Latitude,
		session.Longitude,
		session.CostPerHour,
		formatNullableTime(session.ExpiryTime),
		nullableInt(session.ReminderMinutes),
		session.ExtensionCount,
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// UpdateTiming persists only the timing fields the engine owns. Used by the
// timer manager when an extension changes the expiry out from under the rest
// of the record.
func (r *SessionRepository) UpdateTiming(ctx context.Context, id string, expiry time.Time, extensionCount int) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE parking_sessions
		 SET expiry_time = ?, extension_count = ?, updated_at = ?
		 WHERE id = ?`,
		formatTime(expiry),
		extensionCount,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update session timing: %w", err)
	}
	return nil
}

// ClearTiming removes the expiry and reminder from a session after its timer
// was cancelled or fired.
func (r *SessionRepository) ClearTiming(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE parking_sessions
		 SET expiry_time = NULL, reminder_minutes = NULL, updated_at = ?
		 WHERE id = ?`,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("clear session timing: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.ParkingSession, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions WHERE id = ?`,
		id,
	)
	return scanSession(row)
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]model.ParkingSession, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM parking_sessions
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// ListWithExpiry returns every session, for any user, that still has an
// expiry set. The engine uses it to re-sync after bulk edits.
func (r *SessionRepository) ListWithExpiry(ctx context.Context) ([]model.ParkingSession, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM parking_sessions
		 WHERE expiry_time IS NOT NULL
		 ORDER BY expiry_time ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions with expiry: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM parking_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func collectSessions(rows *sql.Rows) ([]model.ParkingSession, error) {
	sessions := make([]model.ParkingSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(s scanner) (*model.ParkingSession, error) {
	session := model.ParkingSession{}
	var expiry sql.NullString
	var reminder sql.NullInt64
	var createdAt, updatedAt string

	err := s.Scan(
		&session.ID,
		&session.UserID,
		&session.Label,
		&session.Note,
		&session.Latitude,
		&session.Longitude,
		&session.CostPerHour,
		&expiry,
		&reminder,
		&session.ExtensionCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if expiry.Valid {
		parsed, parseErr := parseTime(expiry.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session expiry_time: %w", parseErr)
		}
		session.ExpiryTime = &parsed
	}
	if reminder.Valid {
		value := int(reminder.Int64)
		session.ReminderMinutes = &value
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}
	session.CreatedAt = parsedCreatedAt
	session.UpdatedAt = parsedUpdatedAt

	return &session, nil
}

