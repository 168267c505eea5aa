package simaddr

import "github.com/AdguardTeam/golibs/errors"

const (
	// ErrMalformedIP is returned when a dotted-quad IPv4 address string
	// cannot be parsed.
	ErrMalformedIP errors.Error = "malformed ip address"

	// ErrMalformedMask is returned when a subnet mask is not a contiguous
	// run of one-bits followed by a contiguous run of zero-bits.
	ErrMalformedMask errors.Error = "malformed subnet mask"

	// ErrMalformedMAC is returned when a colon-separated hex MAC address
	// string cannot be parsed.
	ErrMalformedMAC errors.Error = "malformed mac address"

	// ErrAddressFamily is returned when two addresses of different address
	// families are compared or combined.
	ErrAddressFamily errors.Error = "address family mismatch"
)
