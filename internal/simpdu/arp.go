package simpdu

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/netfabric/simfabric/internal/simaddr"
)

// ARPOperation is the ARP opcode: request or reply.
type ARPOperation uint16

// The two ARP operations the simulator supports.
const (
	ARPRequest ARPOperation = ARPOperation(layers.ARPRequest)
	ARPReply   ARPOperation = ARPOperation(layers.ARPReply)
)

// ZeroMAC is used as ARPPacket.TargetMAC in a freshly built request, since
// the target's hardware address is exactly what the request is trying to
// discover.
var ZeroMAC simaddr.MACAddress

// ARPPacket is an Ethernet/IPv4 ARP message, 28 bytes on the wire.
type ARPPacket struct {
	Operation  ARPOperation
	SenderIP   simaddr.IPAddress
	SenderMAC  simaddr.MACAddress
	TargetIP   simaddr.IPAddress
	TargetMAC  simaddr.MACAddress
}

// ToBytes serializes p as a 28-byte ARP packet.
func (p *ARPPacket) ToBytes() (b []byte, err error) {
	senderIP := p.SenderIP.Netip().As4()
	targetIP := p.TargetIP.Netip().As4()

	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         uint16(p.Operation),
		SourceHwAddress:   p.SenderMAC.HardwareAddr(),
		SourceProtAddress: senderIP[:],
		DstHwAddress:      p.TargetMAC.HardwareAddr(),
		DstProtAddress:    targetIP[:],
	}

	buf := gopacket.NewSerializeBuffer()
	err = gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, arp)
	if err != nil {
		return nil, &ParseError{Kind: "arp", Err: err}
	}

	return buf.Bytes(), nil
}

// ARPPacketFromBytes parses a 28-byte ARP packet from b.
func ARPPacketFromBytes(b []byte) (p *ARPPacket, err error) {
	pkt := gopacket.NewPacket(b, layers.LayerTypeARP, gopacket.NoCopy)

	arpLayer := pkt.Layer(layers.LayerTypeARP)
	if arpLayer == nil {
		return nil, &ParseError{Kind: "arp", Err: ErrTooShort}
	}

	arp, _ := arpLayer.(*layers.ARP)

	var op ARPOperation
	switch ARPOperation(arp.Operation) {
	case ARPRequest, ARPReply:
		op = ARPOperation(arp.Operation)
	default:
		return nil, &ParseError{Kind: "arp", Err: ErrUnknownType}
	}

	senderIP, ok := netipFrom4(arp.SourceProtAddress)
	if !ok {
		return nil, &ParseError{Kind: "arp", Err: ErrTooShort}
	}

	targetIP, ok := netipFrom4(arp.DstProtAddress)
	if !ok {
		return nil, &ParseError{Kind: "arp", Err: ErrTooShort}
	}

	return &ARPPacket{
		Operation: op,
		SenderIP:  senderIP,
		SenderMAC: simaddr.MACAddressFromHardwareAddr(arp.SourceHwAddress),
		TargetIP:  targetIP,
		TargetMAC: simaddr.MACAddressFromHardwareAddr(arp.DstHwAddress),
	}, nil
}

// netipFrom4 converts a 4-byte slice into an IPAddress, reporting false if
// the slice is not exactly 4 bytes.
func netipFrom4(b []byte) (ip simaddr.IPAddress, ok bool) {
	if len(b) != 4 {
		return simaddr.IPAddress{}, false
	}

	return simaddr.IPAddressFromUint32(
		uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]),
	), true
}
