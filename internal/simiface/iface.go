// Package simiface implements the per-port network interface state shared
// by every device: addressing, admin state, and the transmit/receive hooks
// the simulator wires up when a device is registered.
package simiface

import (
	"sync"

	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// TransmitFunc is called when an interface transmits a frame.  The
// simulator sets this hook when the owning device is registered, per the
// mediator-owned event bus design: the interface itself holds no reference
// back to the simulator.
type TransmitFunc func(frame *simpdu.EthernetFrame)

// ReceiveFunc is called by the simulator to deliver an inbound frame to the
// owning device's L2 dispatcher.
type ReceiveFunc func(frame *simpdu.EthernetFrame)

// Interface is a single network port owned by exactly one device for its
// entire lifetime.
type Interface struct {
	mu sync.RWMutex

	name    string
	mac     simaddr.MACAddress
	ip      simaddr.IPAddress
	mask    simaddr.SubnetMask
	gateway simaddr.IPAddress
	hasIP   bool
	adminUp bool

	onTransmit TransmitFunc
	onReceive  ReceiveFunc
}

// New creates an interface named name with a fresh, process-unique MAC
// address.  The interface starts admin-down with no IP configured.
func New(name string) (iface *Interface) {
	return &Interface{
		name: name,
		mac:  simaddr.NewLocallyAdministeredMAC(),
	}
}

// Name returns the interface's name.
func (iface *Interface) Name() (name string) { return iface.name }

// MAC returns the interface's stable hardware address.
func (iface *Interface) MAC() (mac simaddr.MACAddress) { return iface.mac }

// SetOnReceive installs the callback invoked by Receive.  It is set once by
// the owning device at construction time.
func (iface *Interface) SetOnReceive(f ReceiveFunc) {
	iface.mu.Lock()
	defer iface.mu.Unlock()

	iface.onReceive = f
}

// SetOnTransmit installs the callback invoked by Transmit.  The simulator
// calls this when the interface's device is registered to a topology.
func (iface *Interface) SetOnTransmit(f TransmitFunc) {
	iface.mu.Lock()
	defer iface.mu.Unlock()

	iface.onTransmit = f
}

// SetIP stores addressing information.  It does not bring the interface up.
func (iface *Interface) SetIP(ip simaddr.IPAddress, mask simaddr.SubnetMask) {
	iface.mu.Lock()
	defer iface.mu.Unlock()

	iface.ip, iface.mask, iface.hasIP = ip, mask, true
}

// ClearIP removes the interface's addressing information.
func (iface *Interface) ClearIP() {
	iface.mu.Lock()
	defer iface.mu.Unlock()

	iface.ip, iface.mask, iface.hasIP = simaddr.IPAddress{}, simaddr.SubnetMask{}, false
}

// SetGateway sets the interface's default gateway.
func (iface *Interface) SetGateway(gw simaddr.IPAddress) {
	iface.mu.Lock()
	defer iface.mu.Unlock()

	iface.gateway = gw
}

// IP returns the interface's configured address and whether one is set.
func (iface *Interface) IP() (ip simaddr.IPAddress, mask simaddr.SubnetMask, ok bool) {
	iface.mu.RLock()
	defer iface.mu.RUnlock()

	return iface.ip, iface.mask, iface.hasIP
}

// Gateway returns the interface's configured default gateway.
func (iface *Interface) Gateway() (gw simaddr.IPAddress) {
	iface.mu.RLock()
	defer iface.mu.RUnlock()

	return iface.gateway
}

// Up brings the interface to the admin-up state.
func (iface *Interface) Up() {
	iface.mu.Lock()
	defer iface.mu.Unlock()

	iface.adminUp = true
}

// Down brings the interface to the admin-down state.  Receive and Transmit
// become no-ops until Up is called again.
func (iface *Interface) Down() {
	iface.mu.Lock()
	defer iface.mu.Unlock()

	iface.adminUp = false
}

// IsUp reports whether the interface is administratively up.
func (iface *Interface) IsUp() (ok bool) {
	iface.mu.RLock()
	defer iface.mu.RUnlock()

	return iface.adminUp
}

// Transmit emits frame through the interface's outgoing hook.  It is a
// no-op when the interface is admin-down.
func (iface *Interface) Transmit(frame *simpdu.EthernetFrame) {
	iface.mu.RLock()
	up, hook := iface.adminUp, iface.onTransmit
	iface.mu.RUnlock()

	if !up || hook == nil {
		return
	}

	hook(frame)
}

// Receive delivers frame to the owning device's L2 dispatcher.  It is a
// no-op when the interface is admin-down.
func (iface *Interface) Receive(frame *simpdu.EthernetFrame) {
	iface.mu.RLock()
	up, hook := iface.adminUp, iface.onReceive
	iface.mu.RUnlock()

	if !up || hook == nil {
		return
	}

	hook(frame)
}
