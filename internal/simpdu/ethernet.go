package simpdu

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/netfabric/simfabric/internal/simaddr"
)

// EtherType identifies the payload carried by an EthernetFrame.
type EtherType uint16

// The EtherType values the simulator understands.  Any other value is
// rejected with ErrUnknownType.
const (
	EtherTypeARP  EtherType = EtherType(layers.EthernetTypeARP)
	EtherTypeIPv4 EtherType = EtherType(layers.EthernetTypeIPv4)
)

// minEthernetPayload is the minimum Ethernet II payload length; frames
// shorter than this are zero-padded on serialize.
const minEthernetPayload = 46

// EthernetFrame is an Ethernet II frame: destination and source MAC,
// EtherType, and payload.
type EthernetFrame struct {
	Destination simaddr.MACAddress
	Source      simaddr.MACAddress
	EtherType   EtherType
	Payload     []byte
}

// NewEthernetFrame builds a frame from its fields, validating the EtherType
// and that both addresses are non-zero.
func NewEthernetFrame(
	dst, src simaddr.MACAddress,
	etherType EtherType,
	payload []byte,
) (f *EthernetFrame, err error) {
	if etherType != EtherTypeARP && etherType != EtherTypeIPv4 {
		return nil, &ParseError{Kind: "ethernet", Err: fmt.Errorf("ethertype %#04x: %w", uint16(etherType), ErrUnknownType)}
	}

	if dst.Equal(ZeroMAC) || src.Equal(ZeroMAC) {
		return nil, &ParseError{Kind: "ethernet", Err: fmt.Errorf("destination and source mac must be non-zero")}
	}

	return &EthernetFrame{
		Destination: dst,
		Source:      src,
		EtherType:   etherType,
		Payload:     payload,
	}, nil
}

// ToBytes serializes f, zero-padding the payload to the minimum Ethernet II
// payload length if necessary.
func (f *EthernetFrame) ToBytes() (b []byte, err error) {
	eth := &layers.Ethernet{
		DstMAC:       f.Destination.HardwareAddr(),
		SrcMAC:       f.Source.HardwareAddr(),
		EthernetType: layers.EthernetType(f.EtherType),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}

	payload := f.Payload
	if len(payload) < minEthernetPayload {
		padded := make([]byte, minEthernetPayload)
		copy(padded, payload)
		payload = padded
	}

	err = gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(payload))
	if err != nil {
		return nil, &ParseError{Kind: "ethernet", Err: err}
	}

	return buf.Bytes(), nil
}

// ObservedSize returns the length of f's serialized wire representation.
func (f *EthernetFrame) ObservedSize() (n int) {
	n = 14 + len(f.Payload)
	if n < 14+minEthernetPayload {
		n = 14 + minEthernetPayload
	}

	return n
}

// EthernetFrameFromBytes parses an Ethernet II frame from b.  Trailing
// padding beyond the declared payload, if any, is retained as part of
// Payload since the header carries no explicit length field.
func EthernetFrameFromBytes(b []byte) (f *EthernetFrame, err error) {
	pkt := gopacket.NewPacket(b, layers.LayerTypeEthernet, gopacket.NoCopy)

	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, &ParseError{Kind: "ethernet", Err: ErrTooShort}
	}

	eth, _ := ethLayer.(*layers.Ethernet)

	switch EtherType(eth.EthernetType) {
	case EtherTypeARP, EtherTypeIPv4:
	default:
		return nil, &ParseError{Kind: "ethernet", Err: fmt.Errorf("ethertype %#04x: %w", uint16(eth.EthernetType), ErrUnknownType)}
	}

	return &EthernetFrame{
		Destination: simaddr.MACAddressFromHardwareAddr(eth.DstMAC),
		Source:      simaddr.MACAddressFromHardwareAddr(eth.SrcMAC),
		EtherType:   EtherType(eth.EthernetType),
		Payload:     eth.Payload,
	}, nil
}
