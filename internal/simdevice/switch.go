// Package simdevice implements the three device kinds the simulator wires
// together: Host (end-station), Switch (learning bridge), and Router (L3
// forwarder).
package simdevice

import (
	"log/slog"
	"time"

	"github.com/netfabric/simfabric/internal/aghalg"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// macTableEntry is a single learned MAC-to-port mapping.
type macTableEntry struct {
	port      string
	learnedAt time.Time
}

// Switch is a layer-2 learning bridge.  Ports are added with AddPort and
// addressed by name in the MAC table and in the simulator's link registry.
type Switch struct {
	id     string
	logger *slog.Logger

	// ports is kept in ascending port-name order, which flooding follows so
	// that broadcast delivery order is deterministic.  The order in which
	// ports were added is not kept.
	ports *aghalg.SortedMap[string, *simiface.Interface]

	macTable map[simaddr.MACAddress]macTableEntry

	// isHub, when true, disables learning and always floods, implementing
	// the simplified hub variant.
	isHub bool

	now func() time.Time
}

// NewSwitch creates a switch identified by id.
func NewSwitch(id string, logger *slog.Logger) (sw *Switch) {
	return &Switch{
		id:       id,
		logger:   logger,
		ports:    aghalg.NewSortedMap[string, *simiface.Interface](),
		macTable: map[simaddr.MACAddress]macTableEntry{},
		now:      time.Now,
	}
}

// NewHub creates a hub: a switch variant that never learns and always
// floods.
func NewHub(id string, logger *slog.Logger) (hub *Switch) {
	sw := NewSwitch(id, logger)
	sw.isHub = true

	return sw
}

// ID returns the device's identifier.
func (sw *Switch) ID() (id string) { return sw.id }

// AddPort registers a port under name.  The caller is expected to have
// wired the interface's transmit hook to the simulator before traffic
// flows.
func (sw *Switch) AddPort(name string, iface *simiface.Interface) {
	sw.ports.Set(name, iface)
	iface.SetOnReceive(func(frame *simpdu.EthernetFrame) {
		sw.Receive(name, frame)
	})
}

// Port returns the named port, if any.
func (sw *Switch) Port(name string) (iface *simiface.Interface, ok bool) {
	return sw.ports.Get(name)
}

// Interface returns the named port, if any. It satisfies the same
// port-lookup shape Host and Router expose, so the simulator can treat
// every device kind uniformly when wiring transmit hooks.
func (sw *Switch) Interface(name string) (iface *simiface.Interface, ok bool) {
	return sw.ports.Get(name)
}

// PortNames returns the names of every port the switch exposes, for the
// simulator to wire transmit hooks against at registration time.
func (sw *Switch) PortNames() (names []string) {
	sw.ports.Range(func(name string, _ *simiface.Interface) (cont bool) {
		names = append(names, name)

		return true
	})

	return names
}

// MACTable returns a snapshot of the learned MAC-to-port mappings.
func (sw *Switch) MACTable() (table map[simaddr.MACAddress]string) {
	table = make(map[simaddr.MACAddress]string, len(sw.macTable))
	for mac, entry := range sw.macTable {
		table[mac] = entry.port
	}

	return table
}

// Receive implements the switch's forwarding logic: learn the source,
// then forward to the learned port or flood.
func (sw *Switch) Receive(ingressPort string, frame *simpdu.EthernetFrame) {
	if !sw.isHub {
		sw.macTable[frame.Source] = macTableEntry{port: ingressPort, learnedAt: sw.now()}
	}

	if sw.isHub || frame.Destination.IsMulticast() {
		sw.flood(ingressPort, frame)

		return
	}

	entry, ok := sw.macTable[frame.Destination]
	if !ok {
		sw.flood(ingressPort, frame)

		return
	}

	iface, ok := sw.ports.Get(entry.port)
	if !ok || !iface.IsUp() {
		sw.flood(ingressPort, frame)

		return
	}

	iface.Transmit(frame)
}

// flood emits frame on every active port except ingressPort, in port-name
// order.
func (sw *Switch) flood(ingressPort string, frame *simpdu.EthernetFrame) {
	sw.ports.Range(func(name string, iface *simiface.Interface) (cont bool) {
		if name != ingressPort {
			iface.Transmit(frame)
		}

		return true
	})
}
