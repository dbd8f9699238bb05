// Package notify delivers user-visible parking alerts. It wraps the native
// desktop notification mechanism where one exists and degrades to a passive
// in-app inbox when it does not.
package notify

// Notifier is the platform notification mechanism.
type Notifier interface {
	// Send shows a notification with the given title and body.
	Send(title, body string) error

	// SendWithSound shows a notification with sound.
	SendWithSound(title, body string) error

	// IsSupported reports whether notifications work on this platform.
	IsSupported() bool
}

// Options control how an alert is delivered.
type Options struct {
	// Tag is the logical alert id. Delivering twice with the same tag
	// replaces rather than duplicates.
	Tag string `json:"tag"`

	// Sound requests an audible alert.
	Sound bool `json:"sound"`

	// Sticky asks the platform to keep the alert visible until dismissed.
	Sticky bool `json:"sticky"`
}

type noopNotifier struct{}

func (n *noopNotifier) Send(title, body string) error          { return nil }
func (n *noopNotifier) SendWithSound(title, body string) error { return nil }
func (n *noopNotifier) IsSupported() bool                      { return false }

// NewNotifier creates a platform-specific notifier, or a no-op one when the
// platform has no usable mechanism.
func NewNotifier() Notifier {
	n := newPlatformNotifier()
	if n == nil || !n.IsSupported() {
		return &noopNotifier{}
	}
	return n
}
