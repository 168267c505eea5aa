// Package simnet implements the Simulator mediator: device and link
// registry, frame dispatch honoring admin/offline state, and a typed event
// bus. Devices hold no reference back to the simulator; a single
// mediator-owned event bus carries frame-sent, frame-received, and
// frame-dropped notifications to subscribers instead.
package simnet

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/google/uuid"
	"github.com/netfabric/simfabric/internal/aghalg"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// dropHistorySize bounds how many of the most recent drop events a
// Simulator keeps for diagnostics.
const dropHistorySize = 64

// Device is the minimal surface the simulator needs from a registered
// device to deliver frames to its ports. simdevice.Host, Switch, and
// Router all satisfy it.
type Device interface {
	ID() (id string)
}

// PortedDevice is implemented by devices whose ports are addressed by
// name, which covers every device kind the simulator wires.
type PortedDevice interface {
	Device
	Interface(name string) (iface *simiface.Interface, ok bool)
	PortNames() (names []string)
}

// endpoint identifies one side of a link.
type endpoint struct {
	device string
	port   string
}

// Link is an unordered pairing of two device ports.
type Link struct {
	DeviceA string
	PortA   string
	DeviceB string
	PortB   string
	Active  bool
}

// DropReason identifies why the simulator discarded a frame.
type DropReason string

// The drop reasons the simulator itself reports (device- and
// router-internal drop reasons live in simdevice).
const (
	DropPortDisconnected DropReason = "port_disconnected"
	DropInterfaceDown    DropReason = "interface_down"
	DropDevicePoweredOff DropReason = "device_powered_off"
	DropLinkRemoved      DropReason = "link_removed"
)

// FrameSentEvent is published when a device transmits a frame.
type FrameSentEvent struct {
	ID       string
	DeviceID string
	Port     string
	Frame    *simpdu.EthernetFrame
}

// FrameReceivedEvent is published when a frame is delivered to a peer.
type FrameReceivedEvent struct {
	ID       string
	DeviceID string
	Port     string
	Frame    *simpdu.EthernetFrame
}

// FrameDroppedEvent is published when the simulator discards a frame
// before delivery.
type FrameDroppedEvent struct {
	ID       string
	DeviceID string
	Frame    *simpdu.EthernetFrame
	Reason   DropReason
}

// Simulator is the mediator owning device registrations, link topology,
// and the event bus. The zero value is not usable; construct with New.
type Simulator struct {
	mu sync.Mutex

	logger *slog.Logger

	devices map[string]PortedDevice
	online  map[string]func() bool

	// links and the port index below implement "each port appears in at
	// most one active link" (exclusive endpoint ownership).
	links     []*Link
	portIndex map[endpoint]*Link

	bus *EventBus

	stats Stats

	// dropHistory keeps the most recent drop events for diagnostics
	// (for example a terminal session inspecting why a device looks
	// unreachable), independently of whether anyone ever subscribed to
	// the event bus.
	dropHistory *aghalg.RingBuffer[FrameDroppedEvent]
}

// Stats holds the simulator's monotonic statistics counters, reset only by
// Reset.
type Stats struct {
	FramesSent     uint64
	FramesReceived uint64
	FramesDropped  uint64
}

// New creates an empty Simulator.
func New(logger *slog.Logger) (sim *Simulator) {
	return &Simulator{
		logger:      logger,
		devices:     map[string]PortedDevice{},
		online:      map[string]func() bool{},
		portIndex:   map[endpoint]*Link{},
		bus:         newEventBus(),
		dropHistory: aghalg.NewRingBuffer[FrameDroppedEvent](dropHistorySize),
	}
}

// Events returns the simulator's event bus for subscriptions.
func (sim *Simulator) Events() (bus *EventBus) { return sim.bus }

// Stats returns a snapshot of the simulator's statistics counters.
func (sim *Simulator) Stats() (stats Stats) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	return sim.stats
}

// RecentDrops returns the most recent frame-dropped events, oldest first,
// up to dropHistorySize.
func (sim *Simulator) RecentDrops() (drops []FrameDroppedEvent) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	sim.dropHistory.Range(func(ev FrameDroppedEvent) (cont bool) {
		drops = append(drops, ev)

		return true
	})

	return drops
}

// Register adds a device to the topology. isOnline reports the device's
// current power state and is consulted on every dispatch. Registering the
// same device ID twice is an error.
func (sim *Simulator) Register(dev PortedDevice, isOnline func() bool) (err error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if _, exists := sim.devices[dev.ID()]; exists {
		return fmt.Errorf("device %s: %w", dev.ID(), errDuplicateDevice)
	}

	sim.devices[dev.ID()] = dev
	sim.online[dev.ID()] = isOnline

	deviceID := dev.ID()
	for _, port := range dev.PortNames() {
		port := port

		iface, ok := dev.Interface(port)
		if !ok {
			continue
		}

		iface.SetOnTransmit(func(frame *simpdu.EthernetFrame) {
			sim.SendFrame(deviceID, port, frame)
		})
	}

	return nil
}

// Unregister removes a device and every link attached to it.
func (sim *Simulator) Unregister(deviceID string) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	delete(sim.devices, deviceID)
	delete(sim.online, deviceID)

	remaining := sim.links[:0]
	for _, l := range sim.links {
		if l.DeviceA == deviceID || l.DeviceB == deviceID {
			delete(sim.portIndex, endpoint{device: l.DeviceA, port: l.PortA})
			delete(sim.portIndex, endpoint{device: l.DeviceB, port: l.PortB})

			continue
		}

		remaining = append(remaining, l)
	}

	sim.links = remaining
}

// Connect creates an active link between (deviceA, portA) and
// (deviceB, portB). It is an error if either port already belongs to a
// link.
func (sim *Simulator) Connect(deviceA, portA, deviceB, portB string) (err error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	epA := endpoint{device: deviceA, port: portA}
	epB := endpoint{device: deviceB, port: portB}

	if _, exists := sim.portIndex[epA]; exists {
		return fmt.Errorf("port %s/%s: %w", deviceA, portA, errPortInUse)
	}

	if _, exists := sim.portIndex[epB]; exists {
		return fmt.Errorf("port %s/%s: %w", deviceB, portB, errPortInUse)
	}

	link := &Link{DeviceA: deviceA, PortA: portA, DeviceB: deviceB, PortB: portB, Active: true}

	sim.links = append(sim.links, link)
	sim.portIndex[epA] = link
	sim.portIndex[epB] = link

	return nil
}

// Disconnect removes the link attached to (deviceID, port), if any.
func (sim *Simulator) Disconnect(deviceID, port string) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	ep := endpoint{device: deviceID, port: port}

	link, ok := sim.portIndex[ep]
	if !ok {
		return
	}

	delete(sim.portIndex, endpoint{device: link.DeviceA, port: link.PortA})
	delete(sim.portIndex, endpoint{device: link.DeviceB, port: link.PortB})

	for i, l := range sim.links {
		if l == link {
			sim.links = append(sim.links[:i], sim.links[i+1:]...)

			break
		}
	}
}

// Initialize replaces the entire topology atomically: every existing
// device and link is discarded before devices and links are installed.
func (sim *Simulator) Initialize(devices map[string]PortedDevice, isOnline map[string]func() bool, links []*Link) (err error) {
	sim.mu.Lock()
	sim.devices = map[string]PortedDevice{}
	sim.online = map[string]func() bool{}
	sim.links = nil
	sim.portIndex = map[endpoint]*Link{}
	sim.stats = Stats{}
	sim.dropHistory.Clear()
	sim.mu.Unlock()

	for id, dev := range devices {
		registerErr := sim.Register(dev, isOnline[id])
		if registerErr != nil {
			return registerErr
		}
	}

	for _, l := range links {
		connectErr := sim.Connect(l.DeviceA, l.PortA, l.DeviceB, l.PortB)
		if connectErr != nil {
			return connectErr
		}
	}

	return nil
}

// Reset tears down all devices and zeros the statistics counters.
func (sim *Simulator) Reset() {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	sim.devices = map[string]PortedDevice{}
	sim.online = map[string]func() bool{}
	sim.links = nil
	sim.portIndex = map[endpoint]*Link{}
	sim.stats = Stats{}
	sim.dropHistory.Clear()
}

// SendFrame dispatches a frame: find the link attached to
// (srcDevice, srcPort), identify the peer, and deliver unless the peer is
// offline or admin-down.
func (sim *Simulator) SendFrame(srcDevice, srcPort string, frame *simpdu.EthernetFrame) {
	id := uuid.NewString()

	sim.mu.Lock()
	sim.stats.FramesSent++
	sim.mu.Unlock()

	sim.bus.publishSent(FrameSentEvent{ID: id, DeviceID: srcDevice, Port: srcPort, Frame: frame})

	sim.mu.Lock()
	link, ok := sim.portIndex[endpoint{device: srcDevice, port: srcPort}]
	sim.mu.Unlock()

	if !ok {
		sim.drop(id, srcDevice, frame, DropPortDisconnected)

		return
	}

	peerDevice, peerPort := link.DeviceB, link.PortB
	if link.DeviceA != srcDevice || link.PortA != srcPort {
		peerDevice, peerPort = link.DeviceA, link.PortA
	}

	sim.mu.Lock()
	isOnline, hasStatus := sim.online[peerDevice]
	dev, hasDev := sim.devices[peerDevice]
	sim.mu.Unlock()

	if !hasDev {
		sim.drop(id, srcDevice, frame, DropPortDisconnected)

		return
	}

	if hasStatus && isOnline != nil && !isOnline() {
		sim.drop(id, peerDevice, frame, DropDevicePoweredOff)

		return
	}

	iface, ok := dev.Interface(peerPort)
	if !ok {
		sim.drop(id, peerDevice, frame, DropPortDisconnected)

		return
	}

	if !iface.IsUp() {
		sim.drop(id, peerDevice, frame, DropInterfaceDown)

		return
	}

	sim.mu.Lock()
	sim.stats.FramesReceived++
	sim.mu.Unlock()

	sim.bus.publishReceived(FrameReceivedEvent{ID: id, DeviceID: peerDevice, Port: peerPort, Frame: frame})

	iface.Receive(frame)
}

func (sim *Simulator) drop(id, deviceID string, frame *simpdu.EthernetFrame, reason DropReason) {
	ev := FrameDroppedEvent{ID: id, DeviceID: deviceID, Frame: frame, Reason: reason}

	sim.mu.Lock()
	sim.stats.FramesDropped++
	sim.dropHistory.Append(ev)
	sim.mu.Unlock()

	sim.bus.publishDropped(ev)
}

const (
	errDuplicateDevice errors.Error = "device already registered"
	errPortInUse       errors.Error = "port already connected"
)
