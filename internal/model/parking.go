package model

import "time"

const (
	// DefaultReminderMinutes is applied when a session enables a reminder
	// without choosing a lead time.
	DefaultReminderMinutes = 15

	// MaxReminderMinutes caps the reminder lead time so a reminder can never
	// be pushed before the session itself was created.
	MaxReminderMinutes = 24 * 60
)

// ParkingSession is a recorded parking event. ExpiryTime and ReminderMinutes
// are optional: free, unlimited parking has neither.
type ParkingSession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Label           string     `json:"label"`
	Note            string     `json:"note,omitempty"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	CostPerHour     float64    `json:"costPerHour,omitempty"`
	ExpiryTime      *time.Time `json:"expiryTime,omitempty"`
	ReminderMinutes *int       `json:"reminderMinutes,omitempty"`
	ExtensionCount  int        `json:"extensionCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// HasExpiry reports whether the session carries an expiry that is still ahead
// of the given instant.
func (s *ParkingSession) HasExpiry(now time.Time) bool {
	return s.ExpiryTime != nil && s.ExpiryTime.After(now)
}
