package simdevice

import (
	"github.com/netfabric/simfabric/internal/arpsvc"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// receive implements the router's L2 dispatch: answer ARP for its own
// interface IPs and forward or consume IPv4 packets, following the router's forwarding rules.
func (r *Router) receive(ifaceName string, frame *simpdu.EthernetFrame) {
	if !r.online {
		return
	}

	iface := r.ifaces[ifaceName]

	switch frame.EtherType {
	case simpdu.EtherTypeARP:
		r.handleARP(ifaceName, iface, frame)
	case simpdu.EtherTypeIPv4:
		r.handleIPv4(ifaceName, iface, frame)
	}
}

func (r *Router) handleARP(ifaceName string, iface *simiface.Interface, frame *simpdu.EthernetFrame) {
	pkt, err := simpdu.ARPPacketFromBytes(frame.Payload)
	if err != nil {
		return
	}

	arp := r.arps[ifaceName]

	ourIP, _, hasIP := iface.IP()
	if !hasIP {
		arp.ProcessPacket(pkt, simaddr.IPAddress{})

		return
	}

	needsReply := arp.ProcessPacket(pkt, ourIP)
	if !needsReply {
		return
	}

	reply := arpsvc.CreateReply(ourIP, iface.MAC(), pkt.SenderIP, pkt.SenderMAC)

	replyBytes, err := reply.ToBytes()
	if err != nil {
		return
	}

	replyFrame, err := simpdu.NewEthernetFrame(pkt.SenderMAC, iface.MAC(), simpdu.EtherTypeARP, replyBytes)
	if err != nil {
		return
	}

	iface.Transmit(replyFrame)
}

func (r *Router) handleIPv4(ifaceName string, iface *simiface.Interface, frame *simpdu.EthernetFrame) {
	pkt, err := simpdu.IPv4PacketFromBytes(frame.Payload)
	if err != nil {
		return
	}

	ourIP, _, hasIP := iface.IP()
	if hasIP && pkt.Destination.Equal(ourIP) {
		r.consumeOwnPacket(ifaceName, iface, pkt)

		return
	}

	// A DHCP client has no address yet while negotiating one, so its
	// Discover/Request reaches us as a limited broadcast rather than a
	// packet addressed to our own interface IP. Consume it here when this
	// interface hosts a DHCP server, instead of routing it as if it were
	// addressed elsewhere.
	if pkt.Destination.IsBroadcast() && pkt.Protocol == simpdu.ProtocolUDP {
		if _, ok := r.dhcp[ifaceName]; ok {
			r.handleOwnDHCP(ifaceName, iface, pkt)

			return
		}
	}

	r.forwardPacket(ifaceName, pkt)
}

// consumeOwnPacket answers ICMP addressed to the router itself (so that
// ping to the router works), and delivers DHCP to the interface's server.
func (r *Router) consumeOwnPacket(ifaceName string, iface *simiface.Interface, pkt *simpdu.IPv4Packet) {
	switch pkt.Protocol {
	case simpdu.ProtocolICMP:
		icmpPkt, err := simpdu.ICMPPacketFromBytes(pkt.Payload)
		if err != nil || icmpPkt.Type != simpdu.ICMPEchoRequest {
			return
		}

		reply := icmpPkt.CreateEchoReply()

		replyBytes, err := reply.ToBytes()
		if err != nil {
			return
		}

		ourIP, _, _ := iface.IP()

		respPkt, err := simpdu.NewIPv4Packet(ourIP, pkt.Source, simpdu.ProtocolICMP, 64, replyBytes)
		if err != nil {
			return
		}

		r.transmitTo(ifaceName, iface, pkt.Source, respPkt)
	case simpdu.ProtocolUDP:
		r.handleOwnDHCP(ifaceName, iface, pkt)
	}
}

func (r *Router) handleOwnDHCP(ifaceName string, iface *simiface.Interface, pkt *simpdu.IPv4Packet) {
	srv, ok := r.dhcp[ifaceName]
	if !ok {
		return
	}

	msg, err := simpdu.DHCPPacketFromBytes(pkt.Payload)
	if err != nil {
		return
	}

	var reply *simpdu.DHCPPacket

	switch msg.MessageType {
	case simpdu.DHCPDiscover:
		reply = srv.HandleDiscover(msg.ClientMAC, msg.Xid)
	case simpdu.DHCPRequest:
		requested := msg.YourIP
		if msg.Options.RequestedIP != nil {
			requested = *msg.Options.RequestedIP
		}

		reply = srv.HandleRequest(msg.ClientMAC, msg.Xid, requested)
	case simpdu.DHCPRelease:
		srv.HandleRelease(msg.ClientMAC)

		return
	}

	if reply == nil {
		return
	}

	replyBytes, err := reply.ToBytes()
	if err != nil {
		return
	}

	ourIP, _, _ := iface.IP()

	ipPkt, err := simpdu.NewIPv4Packet(ourIP, simaddr.BroadcastIP, simpdu.ProtocolUDP, 64, replyBytes)
	if err != nil {
		return
	}

	ipBytes, err := ipPkt.ToBytes()
	if err != nil {
		return
	}

	frame, err := simpdu.NewEthernetFrame(simaddr.BroadcastMAC, iface.MAC(), simpdu.EtherTypeIPv4, ipBytes)
	if err != nil {
		return
	}

	iface.Transmit(frame)
}

// forwardPacket forwards an IPv4 packet: TTL check,
// route lookup, decrement, resolve, and transmit.
func (r *Router) forwardPacket(ingressIface string, pkt *simpdu.IPv4Packet) {
	next, ok := pkt.DecrementTTL()
	if !ok {
		r.Stats.PacketsDropped++
		r.emitTimeExceeded(ingressIface, pkt)

		return
	}

	route, ok := r.Lookup(pkt.Destination)
	if !ok {
		r.Stats.PacketsDropped++

		return
	}

	iface, ok := r.ifaces[route.EgressInterface]
	if !ok || !iface.IsUp() {
		r.Stats.PacketsDropped++

		return
	}

	nextHop := pkt.Destination
	if route.HasNextHop {
		nextHop = route.NextHop
	}

	r.transmitTo(route.EgressInterface, iface, nextHop, next)
}

// transmitTo resolves nextHop's MAC on iface and transmits pkt, emitting an
// ARP request if the mapping is unknown.
func (r *Router) transmitTo(ifaceName string, iface *simiface.Interface, nextHop simaddr.IPAddress, pkt *simpdu.IPv4Packet) {
	arp := r.arps[ifaceName]

	mac, resolved := arp.Resolve(nextHop)
	if !resolved {
		ourIP, _, _ := iface.IP()

		req := arpsvc.CreateRequest(ourIP, iface.MAC(), nextHop)

		reqBytes, err := req.ToBytes()
		if err != nil {
			return
		}

		frame, err := simpdu.NewEthernetFrame(simaddr.BroadcastMAC, iface.MAC(), simpdu.EtherTypeARP, reqBytes)
		if err != nil {
			return
		}

		iface.Transmit(frame)
		r.Stats.PacketsDropped++

		return
	}

	pktBytes, err := pkt.ToBytes()
	if err != nil {
		return
	}

	frame, err := simpdu.NewEthernetFrame(mac, iface.MAC(), simpdu.EtherTypeIPv4, pktBytes)
	if err != nil {
		return
	}

	iface.Transmit(frame)
	r.Stats.PacketsForwarded++
}

// emitTimeExceeded sends an ICMP Time Exceeded back toward pkt's source
// when its TTL reaches 0. It carries forward the identifier and sequence of
// the quoted Echo Request, the same pair traceroute's caller is waiting on,
// so the reply resolves the right hop instead of timing out.
func (r *Router) emitTimeExceeded(ingressIface string, pkt *simpdu.IPv4Packet) {
	iface, ok := r.ifaces[ingressIface]
	if !ok {
		return
	}

	ourIP, _, hasIP := iface.IP()
	if !hasIP {
		return
	}

	icmpPkt := &simpdu.ICMPPacket{Type: simpdu.ICMPTimeExceeded, Payload: pkt.Payload}

	if pkt.Protocol == simpdu.ProtocolICMP {
		if orig, err := simpdu.ICMPPacketFromBytes(pkt.Payload); err == nil && orig.Type == simpdu.ICMPEchoRequest {
			icmpPkt.Identifier = orig.Identifier
			icmpPkt.Sequence = orig.Sequence
		}
	}

	icmpBytes, err := icmpPkt.ToBytes()
	if err != nil {
		return
	}

	respPkt, err := simpdu.NewIPv4Packet(ourIP, pkt.Source, simpdu.ProtocolICMP, 64, icmpBytes)
	if err != nil {
		return
	}

	r.transmitTo(ingressIface, iface, pkt.Source, respPkt)
}
