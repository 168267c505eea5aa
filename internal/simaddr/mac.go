package simaddr

import (
	"crypto/rand"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
)

// MACAddress is a 6-octet Ethernet hardware address.
type MACAddress struct {
	octets [6]byte
}

// BroadcastMAC is the Ethernet broadcast address ff:ff:ff:ff:ff:ff.
var BroadcastMAC = MACAddress{octets: [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}}

// ParseMACAddress parses s, a colon- or hyphen-separated hex MAC address,
// into a MACAddress.
func ParseMACAddress(s string) (mac MACAddress, err error) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return MACAddress{}, fmt.Errorf("parsing %q: %w", s, ErrMalformedMAC)
	}

	return MACAddressFromHardwareAddr(hw), nil
}

// MACAddressFromHardwareAddr adapts a net.HardwareAddr, as produced by
// github.com/mdlayher/ethernet or the standard library, into a MACAddress.
// hw must have length 6.
func MACAddressFromHardwareAddr(hw net.HardwareAddr) (mac MACAddress) {
	var octets [6]byte
	copy(octets[:], hw)

	return MACAddress{octets: octets}
}

// HardwareAddr returns mac as a net.HardwareAddr, for interop with
// mdlayher/ethernet and gopacket-based codecs.
func (mac MACAddress) HardwareAddr() (hw net.HardwareAddr) {
	hw = make(net.HardwareAddr, 6)
	copy(hw, mac.octets[:])

	return hw
}

// Bytes returns the 6 octets of mac.
func (mac MACAddress) Bytes() (b [6]byte) { return mac.octets }

// IsBroadcast reports whether mac is the all-ones broadcast address.
func (mac MACAddress) IsBroadcast() (ok bool) { return mac == BroadcastMAC }

// IsMulticast reports whether mac has the multicast bit (the low-order bit
// of the first octet) set, which also covers the broadcast address.
func (mac MACAddress) IsMulticast() (ok bool) { return mac.octets[0]&0x01 != 0 }

// Equal reports whether mac and other denote the same address.
func (mac MACAddress) Equal(other MACAddress) (ok bool) { return mac == other }

// String implements the fmt.Stringer interface for MACAddress.
func (mac MACAddress) String() (s string) {
	parts := make([]string, 6)
	for i, o := range mac.octets {
		parts[i] = fmt.Sprintf("%02x", o)
	}

	return strings.Join(parts, ":")
}

// macCounter hands out the low 24 bits of locally administered addresses
// generated within this process.
var macCounter atomic.Uint32

// NewLocallyAdministeredMAC generates a MAC address with the
// locally-administered bit set and the multicast bit clear.  The low 24 bits
// come from a process-wide counter, which keeps the addresses of the first
// 2^24 calls unique within the running process; the two octets before them
// are random bytes drawn on each call.
func NewLocallyAdministeredMAC() (mac MACAddress) {
	var seed [2]byte
	_, _ = rand.Read(seed[:])

	n := macCounter.Add(1)

	return MACAddress{octets: [6]byte{
		0x02, seed[0], seed[1],
		byte(n >> 16), byte(n >> 8), byte(n),
	}}
}
