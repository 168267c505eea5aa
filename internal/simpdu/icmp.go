package simpdu

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ICMPType is an ICMPv4 message type.
type ICMPType uint8

// The ICMP types the simulator emits and consumes.
const (
	ICMPEchoReply       ICMPType = ICMPType(layers.ICMPv4TypeEchoReply)
	ICMPEchoRequest     ICMPType = ICMPType(layers.ICMPv4TypeEchoRequest)
	ICMPTimeExceeded    ICMPType = ICMPType(layers.ICMPv4TypeTimeExceeded)
	ICMPDestUnreachable ICMPType = ICMPType(layers.ICMPv4TypeDestinationUnreachable)
)

// ICMPPacket is an ICMPv4 message.  For Echo Request/Reply, Identifier and
// Sequence carry the correlation pair; a Time Exceeded built by a router in
// this simulator carries the quoted Echo Request's pair in the same fields.
type ICMPPacket struct {
	Type       ICMPType
	Code       uint8
	Identifier uint16
	Sequence   uint16
	Payload    []byte
}

// ToBytes serializes p as an ICMPv4 message.
func (p *ICMPPacket) ToBytes() (b []byte, err error) {
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(uint8(p.Type), p.Code),
		Id:       p.Identifier,
		Seq:      p.Sequence,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	err = gopacket.SerializeLayers(buf, opts, icmp, gopacket.Payload(p.Payload))
	if err != nil {
		return nil, &ParseError{Kind: "icmp", Err: err}
	}

	return buf.Bytes(), nil
}

// ICMPPacketFromBytes parses an ICMPv4 message from b.
func ICMPPacketFromBytes(b []byte) (p *ICMPPacket, err error) {
	pkt := gopacket.NewPacket(b, layers.LayerTypeICMPv4, gopacket.NoCopy)

	icmpLayer := pkt.Layer(layers.LayerTypeICMPv4)
	if icmpLayer == nil {
		return nil, &ParseError{Kind: "icmp", Err: ErrTooShort}
	}

	icmp, _ := icmpLayer.(*layers.ICMPv4)

	return &ICMPPacket{
		Type:       ICMPType(icmp.TypeCode.Type()),
		Code:       icmp.TypeCode.Code(),
		Identifier: icmp.Id,
		Sequence:   icmp.Seq,
		Payload:    icmp.Payload,
	}, nil
}

// CreateEchoReply builds the Echo Reply corresponding to an Echo Request,
// swapping the type from 8 to 0 and preserving identifier, sequence, and
// payload.
func (p *ICMPPacket) CreateEchoReply() (reply *ICMPPacket) {
	return &ICMPPacket{
		Type:       ICMPEchoReply,
		Code:       0,
		Identifier: p.Identifier,
		Sequence:   p.Sequence,
		Payload:    p.Payload,
	}
}
