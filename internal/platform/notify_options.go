// Package platform delivers desktop notifications on the host.
package platform

import "time"

// AppName is reported to the notification server as the sender.
const AppName = "instructsheet"

// Urgency levels of the desktop notification protocol.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// IconPath, when non-empty, points to an image file shown next to the
	// message if the notification server supports it.
	IconPath string
	// Timeout is how long the message stays visible. Zero leaves it to the
	// server.
	Timeout time.Duration
	Urgency byte
}

func (o Options) expireMillis() int32 {
	if o.Timeout <= 0 {
		return -1
	}
	return int32(o.Timeout / time.Millisecond)
}
