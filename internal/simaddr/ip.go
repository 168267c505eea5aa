// Package simaddr defines the value types shared by every layer of the
// simulator: IPv4 addresses and masks, and Ethernet MAC addresses.
package simaddr

import (
	"fmt"
	"net/netip"
)

// IPAddress is an IPv4 address.  The zero value is an unset address: IsZero
// reports true for it and String prints "0.0.0.0", but it holds no IPv4
// bytes, so Uint32 panics on it and it does not equal
// IPAddressFromUint32(0).
type IPAddress struct {
	addr netip.Addr
}

// ParseIPAddress parses s, a dotted-quad IPv4 address, into an IPAddress.  It
// returns ErrMalformedIP if s is not a valid IPv4 address.
func ParseIPAddress(s string) (ip IPAddress, err error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return IPAddress{}, fmt.Errorf("parsing %q: %w", s, ErrMalformedIP)
	}

	return IPAddress{addr: addr}, nil
}

// IPAddressFromUint32 constructs an IPAddress from its big-endian uint32
// representation.
func IPAddressFromUint32(v uint32) (ip IPAddress) {
	return IPAddress{addr: netip.AddrFrom4([4]byte{
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	})}
}

// IPAddressFromNetip adapts a netip.Addr produced by a codec layer (gopacket,
// golang.org/x/net/ipv4) into the simulator's own value type.
func IPAddressFromNetip(addr netip.Addr) (ip IPAddress) {
	return IPAddress{addr: addr}
}

// Netip returns the netip.Addr representation of ip, for interop with
// gopacket/golang.org/x/net based codecs.
func (ip IPAddress) Netip() (addr netip.Addr) { return ip.addr }

// Uint32 returns the big-endian uint32 representation of ip.
func (ip IPAddress) Uint32() (v uint32) {
	b := ip.addr.As4()

	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// BroadcastIP is the limited-broadcast address 255.255.255.255.
var BroadcastIP = IPAddressFromUint32(0xffffffff)

// IsZero reports whether ip is the zero value.
func (ip IPAddress) IsZero() (ok bool) { return !ip.addr.IsValid() }

// IsBroadcast reports whether ip is the limited-broadcast address.
func (ip IPAddress) IsBroadcast() (ok bool) { return ip.Equal(BroadcastIP) }

// Equal reports whether ip and other denote the same address.
func (ip IPAddress) Equal(other IPAddress) (ok bool) { return ip.addr == other.addr }

// Less reports whether ip sorts before other, treating addresses as
// unsigned 32-bit integers.
func (ip IPAddress) Less(other IPAddress) (ok bool) { return ip.addr.Less(other.addr) }

// String implements the fmt.Stringer interface for IPAddress.
func (ip IPAddress) String() (s string) {
	if !ip.addr.IsValid() {
		return "0.0.0.0"
	}

	return ip.addr.String()
}

// SubnetMask is an IPv4 subnet mask: a contiguous run of one-bits followed by
// a contiguous run of zero-bits.
type SubnetMask struct {
	prefixLen int
}

// NewSubnetMaskCIDR constructs a SubnetMask from a CIDR prefix length, which
// must be between 0 and 32 inclusive.
func NewSubnetMaskCIDR(prefixLen int) (m SubnetMask, err error) {
	if prefixLen < 0 || prefixLen > 32 {
		return SubnetMask{}, fmt.Errorf("prefix length %d: %w", prefixLen, ErrMalformedMask)
	}

	return SubnetMask{prefixLen: prefixLen}, nil
}

// NewSubnetMaskDotted parses s, a dotted-quad subnet mask such as
// "255.255.255.0", validating that its bits form a contiguous prefix.
func NewSubnetMaskDotted(s string) (m SubnetMask, err error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return SubnetMask{}, fmt.Errorf("parsing %q: %w", s, ErrMalformedMask)
	}

	b := addr.As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])

	ones, ok := maskOnes(v)
	if !ok {
		return SubnetMask{}, fmt.Errorf("%q is not a contiguous mask: %w", s, ErrMalformedMask)
	}

	return SubnetMask{prefixLen: ones}, nil
}

// maskOnes returns the number of leading one-bits in v and whether the
// remaining bits are all zero, i.e. whether v is a valid netmask.
func maskOnes(v uint32) (ones int, ok bool) {
	for ones = 0; ones < 32 && v&(1<<uint(31-ones)) != 0; ones++ {
	}

	rest := uint32(0)
	if ones < 32 {
		rest = v & (uint32(1)<<uint(32-ones) - 1)
	}

	return ones, rest == 0
}

// PrefixLen returns the number of leading one-bits in m.
func (m SubnetMask) PrefixLen() (n int) { return m.prefixLen }

// Uint32 returns the big-endian uint32 representation of m.
func (m SubnetMask) Uint32() (v uint32) {
	if m.prefixLen == 0 {
		return 0
	}

	return ^uint32(0) << uint(32-m.prefixLen)
}

// String implements the fmt.Stringer interface for SubnetMask.
func (m SubnetMask) String() (s string) {
	return IPAddressFromUint32(m.Uint32()).String()
}

// Network returns the network address of ip under mask m.
func (m SubnetMask) Network(ip IPAddress) (network IPAddress) {
	return IPAddressFromUint32(ip.Uint32() & m.Uint32())
}

// SameNetwork reports whether a and b fall within the same network under m.
func (m SubnetMask) SameNetwork(a, b IPAddress) (ok bool) {
	return m.Network(a).Equal(m.Network(b))
}
