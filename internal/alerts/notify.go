package alerts

import "github.com/gen2brain/beeep"

// DesktopNotifier sends OS-level notifications. Failures (no
// notification daemon, permission refused) surface as errors the engine
// logs and ignores.
type DesktopNotifier struct{}

func (DesktopNotifier) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}

// NopNotifier drops notifications, used in tests and headless runs.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string) error { return nil }
