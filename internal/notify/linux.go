//go:build linux

package notify

import (
	"fmt"
	"os/exec"
)

// linuxNotifier shows notifications through notify-send.
type linuxNotifier struct{}

func newPlatformNotifier() Notifier {
	return &linuxNotifier{}
}

func (n *linuxNotifier) Send(title, body string) error {
	return n.send(title, body, false)
}

// SendWithSound sends with a normal-urgency hint. Whether that actually makes
// a sound depends on the notification daemon.
func (n *linuxNotifier) SendWithSound(title, body string) error {
	return n.send(title, body, true)
}

func (n *linuxNotifier) IsSupported() bool {
	_, err := exec.LookPath("notify-send")
	return err == nil
}

func (n *linuxNotifier) send(title, body string, sound bool) error {
	args := []string{"--app-name=parkpal", title, body}
	if sound {
		args = append([]string{"--urgency=normal"}, args...)
	}

	if err := exec.Command("notify-send", args...).Run(); err != nil {
		return fmt.Errorf("notify-send failed: %w", err)
	}
	return nil
}
