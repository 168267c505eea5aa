package simdevice

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/netfabric/simfabric/internal/arpsvc"
	"github.com/netfabric/simfabric/internal/dhcpsvc"
	"github.com/netfabric/simfabric/internal/icmpsvc"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// DropReason identifies why a device discarded an inbound frame, matching
// the frame_dropped reason tags the simulator's event bus reports.
type DropReason string

// The drop reasons a Host or Router may report.
const (
	DropInterfaceDown    DropReason = "interface_down"
	DropDevicePoweredOff DropReason = "device_powered_off"
	DropTTLExpired       DropReason = "ttl_expired"
	DropNoRoute          DropReason = "no_route"
	DropARPFailed        DropReason = "arp_failed"
)

// PingResult is the aggregated outcome of one or more Echo Request
// attempts.
type PingResult struct {
	Success bool
	RTT     time.Duration
	Error   string
}

// TraceHop is one hop's result in a Traceroute call.
type TraceHop struct {
	TTL      uint8
	Replier  simaddr.IPAddress
	TimedOut bool
}

// Host models a PC or server end-station: one or more interfaces, a shared
// ARP and ICMP service, and one DHCP client per DHCP-enabled interface.
type Host struct {
	id     string
	logger *slog.Logger

	ifaces map[string]*simiface.Interface
	arp    *arpsvc.Service
	icmp   *icmpsvc.Service
	dhcp   map[string]*dhcpsvc.ClientService

	online bool
}

// NewHost creates a host identified by id, initially online with no
// interfaces.
func NewHost(id string, logger *slog.Logger) (h *Host) {
	return &Host{
		id:     id,
		logger: logger,
		ifaces: map[string]*simiface.Interface{},
		arp:    arpsvc.New(),
		icmp:   icmpsvc.New(),
		dhcp:   map[string]*dhcpsvc.ClientService{},
		online: true,
	}
}

// ID returns the device's identifier.
func (h *Host) ID() (id string) { return h.id }

// AddInterface registers an interface under name and wires it into the
// host's L2 dispatcher.
func (h *Host) AddInterface(name string, iface *simiface.Interface) {
	h.ifaces[name] = iface
	iface.SetOnReceive(func(frame *simpdu.EthernetFrame) {
		h.receive(name, frame)
	})
}

// Interface returns the named interface, if any.
func (h *Host) Interface(name string) (iface *simiface.Interface, ok bool) {
	iface, ok = h.ifaces[name]

	return iface, ok
}

// PortNames returns the names of every interface the host exposes, for the
// simulator to wire transmit hooks against at registration time.
func (h *Host) PortNames() (names []string) {
	names = make([]string, 0, len(h.ifaces))
	for name := range h.ifaces {
		names = append(names, name)
	}

	return names
}

// ARPTable returns a snapshot of the host's ARP cache.
func (h *Host) ARPTable() (table map[simaddr.IPAddress]arpsvc.CacheEntry) {
	return h.arp.Table()
}

// AddARPEntry installs a static ARP cache entry, for the terminal's
// add_arp_entry operation.
func (h *Host) AddARPEntry(ip simaddr.IPAddress, mac simaddr.MACAddress) {
	h.arp.AddStaticEntry(ip, mac)
}

// PowerOff sets the device offline, brings every interface admin-down, and
// cancels pending ping/DHCP continuations waiting on a reply.
func (h *Host) PowerOff() {
	h.online = false

	for _, iface := range h.ifaces {
		iface.Down()
	}

	h.icmp.CancelAll(errors.Error("interface unreachable"))
}

// PowerOn sets the device back online.  Interfaces remain admin-down until
// explicitly brought up, matching real hardware behavior.
func (h *Host) PowerOn() { h.online = true }

// IsOnline reports whether the host is powered on.
func (h *Host) IsOnline() (ok bool) { return h.online }

// receive implements the host's L2 dispatcher.
func (h *Host) receive(ifaceName string, frame *simpdu.EthernetFrame) {
	if !h.online {
		return
	}

	iface := h.ifaces[ifaceName]

	switch frame.EtherType {
	case simpdu.EtherTypeARP:
		h.handleARP(iface, frame)
	case simpdu.EtherTypeIPv4:
		h.handleIPv4(iface, frame)
	}
}

func (h *Host) handleARP(iface *simiface.Interface, frame *simpdu.EthernetFrame) {
	pkt, err := simpdu.ARPPacketFromBytes(frame.Payload)
	if err != nil {
		return
	}

	ourIP, _, hasIP := iface.IP()
	if !hasIP {
		h.arp.ProcessPacket(pkt, simaddr.IPAddress{})

		return
	}

	needsReply := h.arp.ProcessPacket(pkt, ourIP)
	if !needsReply {
		return
	}

	reply := arpsvc.CreateReply(ourIP, iface.MAC(), pkt.SenderIP, pkt.SenderMAC)
	h.sendARP(iface, reply, pkt.SenderMAC)
}

func (h *Host) sendARP(iface *simiface.Interface, pkt *simpdu.ARPPacket, dst simaddr.MACAddress) {
	payload, err := pkt.ToBytes()
	if err != nil {
		return
	}

	frame, err := simpdu.NewEthernetFrame(dst, iface.MAC(), simpdu.EtherTypeARP, payload)
	if err != nil {
		return
	}

	iface.Transmit(frame)
}

func (h *Host) handleIPv4(iface *simiface.Interface, frame *simpdu.EthernetFrame) {
	pkt, err := simpdu.IPv4PacketFromBytes(frame.Payload)
	if err != nil {
		return
	}

	ourIP, _, hasIP := iface.IP()
	addressedToUs := hasIP && pkt.Destination.Equal(ourIP)

	// A DHCP client has no address yet while it's negotiating one, so the
	// server's broadcast Offer/Ack must still reach it.
	dhcpBroadcast := pkt.Destination.IsBroadcast() && pkt.Protocol == simpdu.ProtocolUDP
	if !addressedToUs && !dhcpBroadcast {
		return
	}

	switch pkt.Protocol {
	case simpdu.ProtocolICMP:
		if addressedToUs {
			h.handleICMP(iface, pkt)
		}
	case simpdu.ProtocolUDP:
		h.handleDHCP(iface, pkt)
	}
}

func (h *Host) handleICMP(iface *simiface.Interface, ipPkt *simpdu.IPv4Packet) {
	icmpPkt, err := simpdu.ICMPPacketFromBytes(ipPkt.Payload)
	if err != nil {
		return
	}

	switch icmpPkt.Type {
	case simpdu.ICMPEchoRequest:
		reply := icmpPkt.CreateEchoReply()
		h.sendIPv4(iface, ipPkt.Source, simpdu.ProtocolICMP, 64, mustICMPBytes(reply))
	case simpdu.ICMPEchoReply, simpdu.ICMPTimeExceeded:
		// A Time Exceeded carries the original Echo Request's identifier and
		// sequence, so it completes the same pending slot as a direct reply.
		h.icmp.HandleEchoReply(ipPkt.Source, icmpPkt)
	}
}

func (h *Host) handleDHCP(iface *simiface.Interface, ipPkt *simpdu.IPv4Packet) {
	cli, ok := h.dhcp[h.ifaceNameOf(iface)]
	if !ok {
		return
	}

	pkt, err := simpdu.DHCPPacketFromBytes(ipPkt.Payload)
	if err != nil {
		return
	}

	switch pkt.MessageType {
	case simpdu.DHCPOffer:
		request := cli.HandleOffer(pkt)
		if request != nil {
			h.sendDHCPBroadcast(iface, request)
		}
	case simpdu.DHCPAck, simpdu.DHCPNak:
		_ = cli.HandleReply(pkt)
	}
}

func (h *Host) ifaceNameOf(iface *simiface.Interface) (name string) {
	for n, i := range h.ifaces {
		if i == iface {
			return n
		}
	}

	return ""
}

// EnableDHCPClient installs a DHCP client on the named interface.  The
// client configures the interface directly once bound.
func (h *Host) EnableDHCPClient(ifaceName string) (ok bool) {
	iface, exists := h.ifaces[ifaceName]
	if !exists {
		return false
	}

	h.dhcp[ifaceName] = dhcpsvc.NewClientService(h.logger, iface.MAC(),
		func(lease dhcpsvc.LeaseInfo) {
			iface.SetIP(lease.IP, lease.Mask)
			iface.SetGateway(lease.Gateway)
		},
		func() {
			iface.ClearIP()
		},
	)

	return true
}

// StartDHCPDiscover kicks off DORA on ifaceName's DHCP client.
func (h *Host) StartDHCPDiscover(ifaceName string) (err error) {
	cli, ok := h.dhcp[ifaceName]
	if !ok {
		return fmt.Errorf("interface %s: dhcp client not enabled", ifaceName)
	}

	iface := h.ifaces[ifaceName]

	discover := cli.StartDiscover()
	if discover == nil {
		return nil
	}

	h.sendDHCPBroadcast(iface, discover)

	return nil
}

func (h *Host) sendDHCPBroadcast(iface *simiface.Interface, pkt *simpdu.DHCPPacket) {
	payload, err := pkt.ToBytes()
	if err != nil {
		return
	}

	frame, err := simpdu.NewEthernetFrame(simaddr.BroadcastMAC, iface.MAC(), simpdu.EtherTypeIPv4, wrapIPv4(payload, iface))
	if err != nil {
		return
	}

	iface.Transmit(frame)
}

// wrapIPv4 encapsulates a DHCP payload in an IPv4 packet from the
// interface's address (or 0.0.0.0 before addressing) to the broadcast
// address.  UDP port 67/68 framing is not modeled; DHCP rides directly on
// IPv4 as a distinguishing protocol number.
func wrapIPv4(payload []byte, iface *simiface.Interface) (b []byte) {
	src, _, hasIP := iface.IP()
	if !hasIP {
		src = simaddr.IPAddressFromUint32(0)
	}

	pkt, err := simpdu.NewIPv4Packet(src, simaddr.BroadcastIP, simpdu.ProtocolUDP, 64, payload)
	if err != nil {
		return nil
	}

	b, _ = pkt.ToBytes()

	return b
}

func mustICMPBytes(p *simpdu.ICMPPacket) (b []byte) {
	b, _ = p.ToBytes()

	return b
}
