package simdevice

import (
	"fmt"
	"time"

	"github.com/netfabric/simfabric/internal/arpsvc"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// defaultPingTimeout is used when a caller doesn't specify one.
const defaultPingTimeout = 2 * time.Second

// primaryInterface returns an arbitrary interface with addressing
// configured, for hosts that expose only one.  On a multi-homed host, which
// of the addressed interfaces it returns is not defined.
func (h *Host) primaryInterface() (iface *simiface.Interface, ok bool) {
	for _, iface = range h.ifaces {
		if _, _, has := iface.IP(); has {
			return iface, true
		}
	}

	return nil, false
}

// sendIPv4 implements the host's L3 send logic: determine the next
// hop, resolve its MAC via ARP, encapsulate, and transmit. It returns an
// error if there is no route or the next hop's MAC cannot be resolved.
func (h *Host) sendIPv4(iface *simiface.Interface, dst simaddr.IPAddress, proto simpdu.IPProtocol, ttl uint8, payload []byte) (err error) {
	ourIP, mask, hasIP := iface.IP()
	if !hasIP {
		return fmt.Errorf("interface has no address configured")
	}

	nextHop := dst
	if !mask.SameNetwork(ourIP, dst) {
		gw := iface.Gateway()
		if gw.IsZero() {
			return fmt.Errorf("no route to %s", dst)
		}

		nextHop = gw
	}

	mac, resolved := h.arp.Resolve(nextHop)
	if !resolved {
		req := arpsvc.CreateRequest(ourIP, iface.MAC(), nextHop)
		h.sendARP(iface, req, simaddr.BroadcastMAC)

		return fmt.Errorf("unable to resolve %s", nextHop)
	}

	pkt, err := simpdu.NewIPv4Packet(ourIP, dst, proto, ttl, payload)
	if err != nil {
		return err
	}

	ipBytes, err := pkt.ToBytes()
	if err != nil {
		return err
	}

	frame, err := simpdu.NewEthernetFrame(mac, iface.MAC(), simpdu.EtherTypeIPv4, ipBytes)
	if err != nil {
		return err
	}

	iface.Transmit(frame)

	return nil
}

// Ping sends an Echo Request to dst with the given TTL and waits up to
// timeout for the reply, returning the aggregated result
// describing the outcome.  A zero timeout uses defaultPingTimeout.
func (h *Host) Ping(dst simaddr.IPAddress, ttl uint8, timeout time.Duration) (result PingResult) {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	iface, ok := h.primaryInterface()
	if !ok {
		return PingResult{Error: "no addressed interface available"}
	}

	req, wait := h.icmp.CreateEchoRequest(ttl, 1, nil)

	reqBytes, err := req.ToBytes()
	if err != nil {
		return PingResult{Error: err.Error()}
	}

	start := time.Now()

	err = h.sendIPv4(iface, dst, simpdu.ProtocolICMP, ttl, reqBytes)
	if err != nil {
		return PingResult{Error: fmt.Sprintf("%s unreachable: %s", dst, err)}
	}

	res := h.icmp.WaitTimeout(req.Identifier, req.Sequence, wait, timeout)
	if res.Err != nil {
		return PingResult{Error: res.Err.Error()}
	}

	return PingResult{Success: true, RTT: time.Since(start)}
}

// Traceroute sends successive Echo Requests with TTL 1, 2, 3, ... up to
// maxHops, recording each hop's replier. It stops once
// a reply arrives from dst itself.
func (h *Host) Traceroute(dst simaddr.IPAddress, maxHops uint8, timeout time.Duration) (hops []TraceHop) {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	iface, ok := h.primaryInterface()
	if !ok {
		return nil
	}

	for ttl := uint8(1); ttl <= maxHops; ttl++ {
		req, wait := h.icmp.CreateEchoRequest(ttl, uint16(ttl), nil)

		reqBytes, err := req.ToBytes()
		if err != nil {
			return hops
		}

		err = h.sendIPv4(iface, dst, simpdu.ProtocolICMP, ttl, reqBytes)
		if err != nil {
			hops = append(hops, TraceHop{TTL: ttl, TimedOut: true})

			continue
		}

		res := h.icmp.WaitTimeout(req.Identifier, req.Sequence, wait, timeout)
		if res.Err != nil {
			hops = append(hops, TraceHop{TTL: ttl, TimedOut: true})

			continue
		}

		hops = append(hops, TraceHop{TTL: ttl, Replier: res.Source})

		if res.Source.Equal(dst) {
			break
		}
	}

	return hops
}
