// Package notify raises desktop notifications for connection events
// over the org.freedesktop.Notifications D-Bus service.
package notify

import (
	"sync"

	"github.com/godbus/dbus/v5"

	"vpndial/common"
	"vpndial/vpn"
)

const (
	notifyService  = "org.freedesktop.Notifications"
	notifyPath     = "/org/freedesktop/Notifications"
	notifyMethod   = "org.freedesktop.Notifications.Notify"
	notifyExpireMs = 5000
	iconConnected  = "network-vpn"
	iconDisconnect = "network-vpn-disconnected"
	iconError      = "network-vpn-error"
	iconActivity   = "network-vpn-acquiring"
)

// Desktop urgency levels per the freedesktop notification spec.
type urgency byte

const (
	urgencyLow urgency = iota
	urgencyNormal
	urgencyCritical
)

// DesktopNotifier delivers notifications over the user session bus.
// Each new notification replaces the previous one, so rapid state
// changes update a single bubble instead of stacking.
type DesktopNotifier struct {
	conn   *dbus.Conn
	mu     sync.Mutex
	lastID uint32
}

// NewDesktopNotifier connects to the session bus. It fails when no
// session bus is available (headless or remote shells), in which case
// callers simply run without notifications.
func NewDesktopNotifier() (*DesktopNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, common.WrapError(err, "cannot connect to session bus")
	}
	return &DesktopNotifier{conn: conn}, nil
}

// Notify implements common.Notifier.
func (n *DesktopNotifier) Notify(title, message string) error {
	return n.send(title, message, iconConnected, urgencyNormal)
}

// NotifyWithIcon implements common.Notifier.
func (n *DesktopNotifier) NotifyWithIcon(title, message, icon string) error {
	return n.send(title, message, icon, urgencyNormal)
}

// Close releases the bus connection.
func (n *DesktopNotifier) Close() error {
	return n.conn.Close()
}

// send delivers one notification and remembers its server-assigned ID
// so the next one replaces it.
func (n *DesktopNotifier) send(title, message, icon string, u urgency) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	obj := n.conn.Object(notifyService, dbus.ObjectPath(notifyPath))
	call := obj.Call(notifyMethod, 0,
		common.AppName,
		n.lastID,
		icon,
		title,
		message,
		[]string{},
		map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(u))},
		int32(notifyExpireMs),
	)
	if call.Err != nil {
		return common.WrapError(call.Err, "notification delivery failed")
	}
	return call.Store(&n.lastID)
}

// Watch raises a desktop notification for every user-visible session
// transition until the event channel closes. Delivery failures are
// logged and swallowed; a broken notification daemon must never
// disturb the connection itself. Run it on its own goroutine with a
// channel from Orchestrator.Subscribe.
func Watch(events <-chan vpn.StateEvent, n *DesktopNotifier) {
	for ev := range events {
		var err error
		switch ev.State {
		case vpn.StateDialing:
			err = n.send("Connecting VPN", ev.Message, iconActivity, urgencyLow)
		case vpn.StateConnected:
			err = n.send("VPN Connected", ev.Message, iconConnected, urgencyNormal)
		case vpn.StateFailed:
			err = n.send("VPN Connection Failed", ev.Message, iconError, urgencyCritical)
		case vpn.StateIdle:
			err = n.send("VPN Disconnected", ev.Message, iconDisconnect, urgencyLow)
		default:
			continue
		}
		if err != nil {
			common.LogWarn("Notify: %v", err)
		}
	}
}
