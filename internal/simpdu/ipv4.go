package simpdu

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/netfabric/simfabric/internal/simaddr"
)

// IPProtocol identifies the upper-layer protocol carried by an IPv4Packet.
type IPProtocol uint8

// The IP protocol numbers the simulator understands.
const (
	ProtocolICMP IPProtocol = IPProtocol(layers.IPProtocolICMPv4)
	ProtocolTCP  IPProtocol = IPProtocol(layers.IPProtocolTCP)
	ProtocolUDP  IPProtocol = IPProtocol(layers.IPProtocolUDP)
)

// IPv4Packet is a simplified (no options, no fragmentation) IPv4 datagram.
type IPv4Packet struct {
	Source      simaddr.IPAddress
	Destination simaddr.IPAddress
	Protocol    IPProtocol
	TTL         uint8
	Payload     []byte
}

// NewIPv4Packet validates ttl and protocol and builds an IPv4Packet.
func NewIPv4Packet(
	src, dst simaddr.IPAddress,
	proto IPProtocol,
	ttl uint8,
	payload []byte,
) (p *IPv4Packet, err error) {
	if ttl == 0 {
		return nil, &ParseError{Kind: "ipv4", Err: fmt.Errorf("ttl must be in 1..255")}
	}

	switch proto {
	case ProtocolICMP, ProtocolTCP, ProtocolUDP:
	default:
		return nil, &ParseError{Kind: "ipv4", Err: fmt.Errorf("protocol %d: %w", proto, ErrUnknownType)}
	}

	return &IPv4Packet{
		Source:      src,
		Destination: dst,
		Protocol:    proto,
		TTL:         ttl,
		Payload:     payload,
	}, nil
}

// ToBytes serializes p as a 20-byte IPv4 header (no options) plus payload.
// The header checksum is computed by gopacket.
func (p *IPv4Packet) ToBytes() (b []byte, err error) {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      p.TTL,
		Protocol: layers.IPProtocol(p.Protocol),
		SrcIP:    p.Source.Netip().AsSlice(),
		DstIP:    p.Destination.Netip().AsSlice(),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	err = gopacket.SerializeLayers(buf, opts, ip, gopacket.Payload(p.Payload))
	if err != nil {
		return nil, &ParseError{Kind: "ipv4", Err: err}
	}

	return buf.Bytes(), nil
}

// IPv4PacketFromBytes parses an IPv4 datagram from b.
func IPv4PacketFromBytes(b []byte) (p *IPv4Packet, err error) {
	pkt := gopacket.NewPacket(b, layers.LayerTypeIPv4, gopacket.NoCopy)

	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil, &ParseError{Kind: "ipv4", Err: ErrTooShort}
	}

	ip, _ := ipLayer.(*layers.IPv4)

	switch IPProtocol(ip.Protocol) {
	case ProtocolICMP, ProtocolTCP, ProtocolUDP:
	default:
		return nil, &ParseError{Kind: "ipv4", Err: fmt.Errorf("protocol %d: %w", ip.Protocol, ErrUnknownType)}
	}

	src := ip.SrcIP.To4()
	dst := ip.DstIP.To4()
	if src == nil || dst == nil {
		return nil, &ParseError{Kind: "ipv4", Err: ErrTooShort}
	}

	return &IPv4Packet{
		Source:      simaddr.IPAddressFromUint32(uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3])),
		Destination: simaddr.IPAddressFromUint32(uint32(dst[0])<<24 | uint32(dst[1])<<16 | uint32(dst[2])<<8 | uint32(dst[3])),
		Protocol:    IPProtocol(ip.Protocol),
		TTL:         ip.TTL,
		Payload:     ip.Payload,
	}, nil
}

// DecrementTTL returns a copy of p with its TTL reduced by one, for use by
// routers forwarding the packet.  ok is false if the TTL was already at or
// below 1, in which case the packet must be dropped rather than forwarded.
func (p *IPv4Packet) DecrementTTL() (next *IPv4Packet, ok bool) {
	if p.TTL <= 1 {
		return nil, false
	}

	cp := *p
	cp.TTL--

	return &cp, true
}
