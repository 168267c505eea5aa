// Package termsvc implements the device-facing operations a terminal
// session drives: interface configuration, ping, ARP table manipulation,
// static routes, and DHCP client/server controls. It deliberately stops
// at that boundary — no command-string parser or OS-persona output
// formatter lives here, since rendering a shell-like session around these
// operations is out of scope for this package.
package termsvc

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/netfabric/simfabric/internal/dhcpsvc"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simdevice"
	"github.com/netfabric/simfabric/internal/simnet"
)

// Service is the terminal-facing facade over a running Simulator. The zero
// value is not usable; construct with New.
type Service struct {
	logger *slog.Logger
	sim    *simnet.Simulator

	hosts    map[string]*simdevice.Host
	routers  map[string]*simdevice.Router
	switches map[string]*simdevice.Switch
}

// New creates a Service bound to sim.
func New(logger *slog.Logger, sim *simnet.Simulator) (svc *Service) {
	return &Service{
		logger:   logger,
		sim:      sim,
		hosts:    map[string]*simdevice.Host{},
		routers:  map[string]*simdevice.Router{},
		switches: map[string]*simdevice.Switch{},
	}
}

// RegisterHost adds h to both the simulator's topology and the facade's
// device registry.
func (svc *Service) RegisterHost(h *simdevice.Host) (err error) {
	err = svc.sim.Register(h, h.IsOnline)
	if err != nil {
		return err
	}

	svc.hosts[h.ID()] = h

	return nil
}

// RegisterRouter adds r to both the simulator's topology and the facade's
// device registry.
func (svc *Service) RegisterRouter(r *simdevice.Router) (err error) {
	err = svc.sim.Register(r, r.IsOnline)
	if err != nil {
		return err
	}

	svc.routers[r.ID()] = r

	return nil
}

// RegisterSwitch adds sw to both the simulator's topology and the facade's
// device registry.
func (svc *Service) RegisterSwitch(sw *simdevice.Switch) (err error) {
	alwaysOnline := func() bool { return true }

	err = svc.sim.Register(sw, alwaysOnline)
	if err != nil {
		return err
	}

	svc.switches[sw.ID()] = sw

	return nil
}

// ConfigureInterface addresses a host's or router's named interface.
func (svc *Service) ConfigureInterface(deviceID, ifaceName string, ip simaddr.IPAddress, mask simaddr.SubnetMask, gateway simaddr.IPAddress) (err error) {
	if h, ok := svc.hosts[deviceID]; ok {
		iface, exists := h.Interface(ifaceName)
		if !exists {
			return fmt.Errorf("%s/%s: %w", deviceID, ifaceName, ErrUnknownInterface)
		}

		iface.SetIP(ip, mask)
		iface.SetGateway(gateway)
		iface.Up()

		return nil
	}

	if r, ok := svc.routers[deviceID]; ok {
		configured := r.ConfigureInterface(ifaceName, ip, mask)
		if !configured {
			return fmt.Errorf("%s/%s: %w", deviceID, ifaceName, ErrUnknownInterface)
		}

		iface, _ := r.Interface(ifaceName)
		iface.Up()

		return nil
	}

	return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
}

// SendPing issues a ping from a host to dst and blocks for the result.
func (svc *Service) SendPing(deviceID string, dst simaddr.IPAddress, ttl uint8, timeout time.Duration) (result simdevice.PingResult, err error) {
	h, ok := svc.hosts[deviceID]
	if !ok {
		return simdevice.PingResult{}, fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	return h.Ping(dst, ttl, timeout), nil
}

// SendTraceroute issues a traceroute from a host to dst.
func (svc *Service) SendTraceroute(deviceID string, dst simaddr.IPAddress, maxHops uint8, timeout time.Duration) (hops []simdevice.TraceHop, err error) {
	h, ok := svc.hosts[deviceID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	return h.Traceroute(dst, maxHops, timeout), nil
}

// AddARPEntry installs a static ARP cache entry on a host.
func (svc *Service) AddARPEntry(deviceID string, ip simaddr.IPAddress, mac simaddr.MACAddress) (err error) {
	h, ok := svc.hosts[deviceID]
	if !ok {
		return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	h.AddARPEntry(ip, mac)

	return nil
}

// GetARPTable returns a host's current ARP cache snapshot.
func (svc *Service) GetARPTable(deviceID string) (table map[simaddr.IPAddress]arpCacheEntry, err error) {
	h, ok := svc.hosts[deviceID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	raw := h.ARPTable()
	table = make(map[simaddr.IPAddress]arpCacheEntry, len(raw))
	for ip, entry := range raw {
		table[ip] = arpCacheEntry{MAC: entry.MAC, InstalledAt: entry.InstalledAt}
	}

	return table, nil
}

// arpCacheEntry mirrors arpsvc.CacheEntry without exposing that package's
// type directly in the facade's surface.
type arpCacheEntry struct {
	MAC         simaddr.MACAddress
	InstalledAt time.Time
}

// AddRoute installs a static route on a router.
func (svc *Service) AddRoute(deviceID string, network simaddr.IPAddress, mask simaddr.SubnetMask, nextHop simaddr.IPAddress, hasNextHop bool, egress string) (err error) {
	r, ok := svc.routers[deviceID]
	if !ok {
		return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	r.AddRoute(network, mask, nextHop, hasNextHop, egress)

	return nil
}

// RemoveRoute removes a matching static route from a router.
func (svc *Service) RemoveRoute(deviceID string, network simaddr.IPAddress, mask simaddr.SubnetMask) (err error) {
	r, ok := svc.routers[deviceID]
	if !ok {
		return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	r.RemoveRoute(network, mask)

	return nil
}

// SetDefaultRoute installs or replaces a router's default route.
func (svc *Service) SetDefaultRoute(deviceID string, nextHop simaddr.IPAddress, egress string) (err error) {
	r, ok := svc.routers[deviceID]
	if !ok {
		return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	r.SetDefaultRoute(nextHop, egress)

	return nil
}

// EnableDHCPServer turns on a DHCP server bound to a router's interface.
func (svc *Service) EnableDHCPServer(deviceID, ifaceName string, conf *dhcpsvc.ServerConfig) (err error) {
	r, ok := svc.routers[deviceID]
	if !ok {
		return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	return r.EnableDHCPServer(ifaceName, conf)
}

// DisableDHCPServer turns off the DHCP server bound to a router's
// interface, if any.
func (svc *Service) DisableDHCPServer(deviceID, ifaceName string) (err error) {
	r, ok := svc.routers[deviceID]
	if !ok {
		return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	r.DisableDHCPServer(ifaceName)

	return nil
}

// EnableDHCPClient turns on DHCP discovery on a host's interface.
func (svc *Service) EnableDHCPClient(deviceID, ifaceName string) (err error) {
	h, ok := svc.hosts[deviceID]
	if !ok {
		return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	if ok = h.EnableDHCPClient(ifaceName); !ok {
		return fmt.Errorf("%s/%s: %w", deviceID, ifaceName, ErrUnknownInterface)
	}

	return h.StartDHCPDiscover(ifaceName)
}

// PowerOff takes any registered device offline.
func (svc *Service) PowerOff(deviceID string) (err error) {
	if h, ok := svc.hosts[deviceID]; ok {
		h.PowerOff()

		return nil
	}

	if r, ok := svc.routers[deviceID]; ok {
		r.PowerOff()

		return nil
	}

	return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
}

// PowerOn brings any registered device back online.
func (svc *Service) PowerOn(deviceID string) (err error) {
	if h, ok := svc.hosts[deviceID]; ok {
		h.PowerOn()

		return nil
	}

	if r, ok := svc.routers[deviceID]; ok {
		r.PowerOn()

		return nil
	}

	return fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
}

// Stats returns the simulator's current frame dispatch counters.
func (svc *Service) Stats() (stats simnet.Stats) { return svc.sim.Stats() }

// RecentDrops returns the simulator's most recently dropped frames, oldest
// first, for diagnosing an unreachable device.
func (svc *Service) RecentDrops() (drops []simnet.FrameDroppedEvent) { return svc.sim.RecentDrops() }
