//go:build !darwin && !linux

package notify

// stubNotifier is used on platforms without a notification mechanism.
type stubNotifier struct{}

func newPlatformNotifier() Notifier {
	return &stubNotifier{}
}

func (n *stubNotifier) Send(title, body string) error          { return nil }
func (n *stubNotifier) SendWithSound(title, body string) error { return nil }
func (n *stubNotifier) IsSupported() bool                      { return false }
