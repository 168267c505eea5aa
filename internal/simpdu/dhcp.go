package simpdu

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/netfabric/simfabric/internal/simaddr"
)

// DHCPMessageType is one of the DHCP message types carried in option 53.
type DHCPMessageType uint8

// The DHCP message types the simulator's DORA state machines exchange.
// Values match the RFC 2131 message-type option codes, the same ones
// github.com/insomniacslk/dhcp/dhcpv4 exposes as dhcpv4.MessageType*; the
// numeric constants are mirrored here to avoid depending on that package's
// type in the public codec surface.
const (
	DHCPDiscover DHCPMessageType = DHCPMessageType(dhcpv4.MessageTypeDiscover)
	DHCPOffer    DHCPMessageType = DHCPMessageType(dhcpv4.MessageTypeOffer)
	DHCPRequest  DHCPMessageType = DHCPMessageType(dhcpv4.MessageTypeRequest)
	DHCPAck      DHCPMessageType = DHCPMessageType(dhcpv4.MessageTypeAck)
	DHCPNak      DHCPMessageType = DHCPMessageType(dhcpv4.MessageTypeNak)
	DHCPRelease  DHCPMessageType = DHCPMessageType(dhcpv4.MessageTypeRelease)
)

// DHCPOptions carries the subset of DHCP options the simulator understands.
// Fields are nil/zero when the corresponding option is absent.
type DHCPOptions struct {
	SubnetMask    *simaddr.SubnetMask
	Router        *simaddr.IPAddress
	DNS           []simaddr.IPAddress
	Hostname      string
	RequestedIP   *simaddr.IPAddress
	LeaseTime     uint32
	ServerID      *simaddr.IPAddress
}

// DHCPPacket is a DHCPv4 message: the BOOTP fixed header plus the options
// the simulator cares about.
type DHCPPacket struct {
	ClientMAC   simaddr.MACAddress
	Xid         uint32
	ClientIP    simaddr.IPAddress
	YourIP      simaddr.IPAddress
	ServerIP    simaddr.IPAddress
	MessageType DHCPMessageType
	Options     DHCPOptions
}

// ToBytes serializes p as a BOOTP message with the magic cookie and
// TLV-encoded options.
func (p *DHCPPacket) ToBytes() (b []byte, err error) {
	msg := &layers.DHCPv4{
		Operation:    layers.DHCPOpRequest,
		HardwareType: layers.LinkTypeEthernet,
		HardwareLen:  6,
		Xid:          p.Xid,
		ClientIP:     ipOrZero(p.ClientIP),
		YourClientIP: ipOrZero(p.YourIP),
		NextServerIP: ipOrZero(p.ServerIP),
		ClientHWAddr: p.ClientMAC.HardwareAddr(),
	}

	msg.Options = append(msg.Options, layers.NewDHCPOption(layers.DHCPOptMessageType, []byte{byte(p.MessageType)}))
	msg.Options = p.Options.appendTo(msg.Options)
	msg.Options = append(msg.Options, layers.NewDHCPOption(layers.DHCPOptEnd, nil))

	buf := gopacket.NewSerializeBuffer()
	err = gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, msg)
	if err != nil {
		return nil, &ParseError{Kind: "dhcp", Err: err}
	}

	return buf.Bytes(), nil
}

// DHCPPacketFromBytes parses a DHCPv4 message from b.
func DHCPPacketFromBytes(b []byte) (p *DHCPPacket, err error) {
	pkt := gopacket.NewPacket(b, layers.LayerTypeDHCPv4, gopacket.NoCopy)

	dhcpLayer := pkt.Layer(layers.LayerTypeDHCPv4)
	if dhcpLayer == nil {
		return nil, &ParseError{Kind: "dhcp", Err: ErrTooShort}
	}

	msg, _ := dhcpLayer.(*layers.DHCPv4)

	typOpt, ok := findOption(msg.Options, layers.DHCPOptMessageType)
	if !ok || len(typOpt.Data) != 1 {
		return nil, &ParseError{Kind: "dhcp", Err: ErrTooShort}
	}

	return &DHCPPacket{
		ClientMAC:   simaddr.MACAddressFromHardwareAddr(msg.ClientHWAddr),
		Xid:         msg.Xid,
		ClientIP:    ipFromNet(msg.ClientIP),
		YourIP:      ipFromNet(msg.YourClientIP),
		ServerIP:    ipFromNet(msg.NextServerIP),
		MessageType: DHCPMessageType(typOpt.Data[0]),
		Options:     optionsFrom(msg.Options),
	}, nil
}

// appendTo appends o's populated fields as DHCPv4 TLV options to opts, in
// ascending option-code order.
func (o DHCPOptions) appendTo(opts layers.DHCPOptions) (res layers.DHCPOptions) {
	if o.SubnetMask != nil {
		opts = append(opts, layers.NewDHCPOption(layers.DHCPOptSubnetMask, ipBytes(simaddr.IPAddressFromUint32(o.SubnetMask.Uint32()))))
	}

	if o.Router != nil {
		opts = append(opts, layers.NewDHCPOption(layers.DHCPOptRouter, ipBytes(*o.Router)))
	}

	if len(o.DNS) > 0 {
		data := make([]byte, 0, len(o.DNS)*4)
		for _, d := range o.DNS {
			data = append(data, ipBytes(d)...)
		}

		opts = append(opts, layers.NewDHCPOption(layers.DHCPOptDNS, data))
	}

	if o.Hostname != "" {
		opts = append(opts, layers.NewDHCPOption(layers.DHCPOptHostname, []byte(o.Hostname)))
	}

	if o.RequestedIP != nil {
		opts = append(opts, layers.NewDHCPOption(layers.DHCPOptRequestIP, ipBytes(*o.RequestedIP)))
	}

	if o.LeaseTime != 0 {
		data := []byte{
			byte(o.LeaseTime >> 24), byte(o.LeaseTime >> 16),
			byte(o.LeaseTime >> 8), byte(o.LeaseTime),
		}
		opts = append(opts, layers.NewDHCPOption(layers.DHCPOptLeaseTime, data))
	}

	if o.ServerID != nil {
		opts = append(opts, layers.NewDHCPOption(layers.DHCPOptServerID, ipBytes(*o.ServerID)))
	}

	return opts
}

// optionsFrom extracts the options the simulator cares about from a decoded
// option list, skipping any it does not recognize.
func optionsFrom(opts layers.DHCPOptions) (o DHCPOptions) {
	if opt, ok := findOption(opts, layers.DHCPOptSubnetMask); ok && len(opt.Data) == 4 {
		m, err := simaddr.NewSubnetMaskDotted(net.IP(opt.Data).String())
		if err == nil {
			o.SubnetMask = &m
		}
	}

	if opt, ok := findOption(opts, layers.DHCPOptRouter); ok && len(opt.Data) == 4 {
		ip := ipFromBytes(opt.Data)
		o.Router = &ip
	}

	if opt, ok := findOption(opts, layers.DHCPOptDNS); ok {
		for i := 0; i+4 <= len(opt.Data); i += 4 {
			o.DNS = append(o.DNS, ipFromBytes(opt.Data[i:i+4]))
		}
	}

	if opt, ok := findOption(opts, layers.DHCPOptHostname); ok {
		o.Hostname = string(opt.Data)
	}

	if opt, ok := findOption(opts, layers.DHCPOptRequestIP); ok && len(opt.Data) == 4 {
		ip := ipFromBytes(opt.Data)
		o.RequestedIP = &ip
	}

	if opt, ok := findOption(opts, layers.DHCPOptLeaseTime); ok && len(opt.Data) == 4 {
		o.LeaseTime = uint32(opt.Data[0])<<24 | uint32(opt.Data[1])<<16 | uint32(opt.Data[2])<<8 | uint32(opt.Data[3])
	}

	if opt, ok := findOption(opts, layers.DHCPOptServerID); ok && len(opt.Data) == 4 {
		ip := ipFromBytes(opt.Data)
		o.ServerID = &ip
	}

	return o
}

// findOption returns the first option in opts with the given code.
func findOption(opts layers.DHCPOptions, code layers.DHCPOpt) (opt layers.DHCPOption, ok bool) {
	for _, o := range opts {
		if o.Type == code {
			return o, true
		}
	}

	return layers.DHCPOption{}, false
}

func ipOrZero(ip simaddr.IPAddress) (netIP net.IP) {
	if ip.IsZero() {
		return net.IPv4zero
	}

	return net.IP(ipBytes(ip))
}

func ipBytes(ip simaddr.IPAddress) (b []byte) {
	a := ip.Netip().As4()

	return a[:]
}

func ipFromNet(ip net.IP) (addr simaddr.IPAddress) {
	v4 := ip.To4()
	if v4 == nil {
		return simaddr.IPAddress{}
	}

	return ipFromBytes(v4)
}

func ipFromBytes(b []byte) (ip simaddr.IPAddress) {
	return simaddr.IPAddressFromUint32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}
