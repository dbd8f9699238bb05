package model

import "time"

// TimerState tracks the reminder and expiry schedule for one parking session.
// At most one exists per location id, and only while the session still has an
// unexpired expiry time.
type TimerState struct {
	LocationID        string     `json:"locationId"`
	ExpiryTime        time.Time  `json:"expiryTime"`
	ReminderTime      *time.Time `json:"reminderTime,omitempty"`
	ReminderScheduled bool       `json:"reminderScheduled"`
	ExpiryScheduled   bool       `json:"expiryScheduled"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// PersistedBackup is the durable snapshot of all timer states, written
// whenever the app goes to the background and read back on the next start.
type PersistedBackup struct {
	SavedAt int64        `json:"savedAt"`
	Timers  []TimerState `json:"timers"`
}
