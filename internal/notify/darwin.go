//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

// darwinNotifier shows notifications through osascript.
type darwinNotifier struct{}

func newPlatformNotifier() Notifier {
	return &darwinNotifier{}
}

func (n *darwinNotifier) Send(title, body string) error {
	return n.send(title, body, false)
}

func (n *darwinNotifier) SendWithSound(title, body string) error {
	return n.send(title, body, true)
}

func (n *darwinNotifier) IsSupported() bool {
	_, err := exec.LookPath("osascript")
	return err == nil
}

func (n *darwinNotifier) send(title, body string, sound bool) error {
	title = escapeAppleScript(title)
	body = escapeAppleScript(body)

	var script string
	if sound {
		script = fmt.Sprintf(`display notification %q with title %q sound name "default"`, body, title)
	} else {
		script = fmt.Sprintf(`display notification %q with title %q`, body, title)
	}

	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("osascript failed: %w", err)
	}
	return nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
