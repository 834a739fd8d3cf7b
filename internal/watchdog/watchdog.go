// Package watchdog notifies systemd about service liveness. When the
// process is not running under systemd (no NOTIFY_SOCKET), every call
// is a no-op.
package watchdog

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"
)

// notifyFunc matches daemon.SdNotify, injectable for tests.
type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Watchdog sends sd_notify state changes.
type Watchdog struct {
	notify notifyFunc
}

// New returns a Watchdog backed by the real sd_notify socket.
func New() *Watchdog {
	return &Watchdog{notify: daemon.SdNotify}
}

// NewWithNotify returns a Watchdog using a custom notify function.
func NewWithNotify(notify func(bool, string) (bool, error)) *Watchdog {
	return &Watchdog{notify: notify}
}

// Ready tells systemd startup has finished.
func (w *Watchdog) Ready() error {
	if _, err := w.notify(false, daemon.SdNotifyReady); err != nil {
		return fmt.Errorf("notify ready: %w", err)
	}
	return nil
}

// Ping feeds the systemd watchdog timer.
func (w *Watchdog) Ping() error {
	if _, err := w.notify(false, daemon.SdNotifyWatchdog); err != nil {
		return fmt.Errorf("notify watchdog: %w", err)
	}
	return nil
}
