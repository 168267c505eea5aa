// Package aghslog contains logging constants and helpers shared across the
// simulator's components.
package aghslog

import (
	"log/slog"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// Prefixes for the loggers of the simulator's major components.
const (
	PrefixSimnet  = "simnet"
	PrefixDHCP    = "dhcpsvc"
	PrefixICMP    = "icmpsvc"
	PrefixARP     = "arpsvc"
	PrefixTermsvc = "termsvc"
)

// Log attribute keys used across packages.
const (
	// KeyDevice is the log attribute for a device ID.
	KeyDevice = "device"

	// KeyInterface is the log attribute for an interface name.
	KeyInterface = "interface"

	// KeyPeer is the log attribute for the device ID on the far side of a
	// link.
	KeyPeer = "peer"
)

// NewForDevice returns a new logger prefixed for logs about a specific
// device, identified by deviceID.
func NewForDevice(baseLogger *slog.Logger, prefix, deviceID string) (l *slog.Logger) {
	return baseLogger.With(slogutil.KeyPrefix, prefix, KeyDevice, deviceID)
}
