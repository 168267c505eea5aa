// Package dhcpsvc implements the DHCP server and client DORA state
// machines on top of the simulator's own address value types and its
// synchronous, single-threaded scheduling model — there are no goroutines
// here, only direct calls driven by the device dispatch loop.
package dhcpsvc

import (
	"time"

	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/netfabric/simfabric/internal/simaddr"
)

// Lease is a server-side DHCP lease.
type Lease struct {
	ClientMAC  simaddr.MACAddress
	AssignedIP simaddr.IPAddress
	ExpiresAt  time.Time
	IsStatic   bool
}

// Clone returns a deep copy of l.  l may be nil.
func (l *Lease) Clone() (clone *Lease) {
	if l == nil {
		return nil
	}

	cp := *l

	return &cp
}

// expired reports whether l's TTL has elapsed according to clock.  Static
// leases never expire.
func (l *Lease) expired(clock timeutil.Clock) (ok bool) {
	if l.IsStatic {
		return false
	}

	return clock.Now().After(l.ExpiresAt)
}
