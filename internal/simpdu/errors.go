// Package simpdu implements the wire-format codecs for the protocol data
// units the simulator exchanges: Ethernet frames, ARP packets, IPv4
// packets, ICMPv4 messages, and DHCPv4 messages.  Encoding and decoding are
// delegated to github.com/google/gopacket/layers, the same library the
// upstream DHCP service uses to parse frames captured off a real interface.
package simpdu

import "github.com/AdguardTeam/golibs/errors"

const (
	// ErrTooShort is returned when a byte slice is too short to contain a
	// valid PDU of the type being parsed.
	ErrTooShort errors.Error = "pdu too short"

	// ErrUnknownType is returned when a PDU carries an EtherType, protocol
	// number, or opcode outside the set this package supports.
	ErrUnknownType errors.Error = "unknown pdu type"

	// ErrBadChecksum is returned when a parsed PDU's checksum does not
	// match its payload.
	ErrBadChecksum errors.Error = "bad checksum"
)

// ParseError annotates a lower-level codec error with the PDU kind that
// failed to parse.
type ParseError struct {
	// Kind names the PDU type being parsed, e.g. "ethernet" or "arp".
	Kind string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for *ParseError.
func (e *ParseError) Error() (s string) {
	return e.Kind + ": " + e.Err.Error()
}

// Unwrap returns the underlying error, for use with errors.Is and
// errors.As.
func (e *ParseError) Unwrap() (err error) { return e.Err }
