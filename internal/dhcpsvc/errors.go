package dhcpsvc

import "github.com/AdguardTeam/golibs/errors"

const (
	// errNilConfig is returned when a nil config is supplied.
	errNilConfig errors.Error = "config is nil"

	// errPoolExhausted describes a DISCOVER that cannot be satisfied because
	// the pool has no free address left.  HandleDiscover does not return
	// it: the server simply emits no OFFER.
	errPoolExhausted errors.Error = "dhcp pool exhausted"

	// errNoLease describes a REQUEST/RELEASE that references a lease the
	// server does not have.  Neither handler returns it: HandleRequest
	// answers such a REQUEST with a NAK and HandleRelease ignores such a
	// RELEASE.
	errNoLease errors.Error = "no matching lease"
)
