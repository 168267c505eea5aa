package simdevice

import (
	"cmp"
	"log/slog"

	"github.com/netfabric/simfabric/internal/aghalg"
	"github.com/netfabric/simfabric/internal/arpsvc"
	"github.com/netfabric/simfabric/internal/dhcpsvc"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// RouteEntry is one entry of a Router's route table.
type RouteEntry struct {
	Network             simaddr.IPAddress
	Mask                simaddr.SubnetMask
	NextHop             simaddr.IPAddress
	HasNextHop          bool
	EgressInterface     string
	IsDirectlyConnected bool

	// seq preserves insertion order for the tie-break rule below.
	seq int
}

// routeKey orders routes by descending prefix length (longest-prefix-match
// first) and, within equal prefix lengths, by insertion order.
type routeKey struct {
	negPrefixLen int
	seq          int
}

// RouterStats holds a Router's monotonic forwarding counters.
type RouterStats struct {
	PacketsForwarded uint64
	PacketsDropped   uint64
}

// Router is a layer-3 forwarder: multiple addressed interfaces, one ARP
// service per interface, a longest-prefix-match route table, and optional
// per-interface DHCP servers.
type Router struct {
	id     string
	logger *slog.Logger

	ifaces map[string]*simiface.Interface
	arps   map[string]*arpsvc.Service
	dhcp   map[string]*dhcpsvc.ServerService

	routes       *aghalg.SortedMap[routeKey, *RouteEntry]
	defaultRoute *RouteEntry
	routeSeq     int

	Stats RouterStats

	online bool
}

// NewRouter creates a router identified by id.
func NewRouter(id string, logger *slog.Logger) (r *Router) {
	return &Router{
		id:     id,
		logger: logger,
		ifaces: map[string]*simiface.Interface{},
		arps:   map[string]*arpsvc.Service{},
		dhcp:   map[string]*dhcpsvc.ServerService{},
		routes: aghalg.NewSortedMapFunc[routeKey, *RouteEntry](compareRouteKeys),
		online: true,
	}
}

func compareRouteKeys(a, b routeKey) (res int) {
	if c := cmp.Compare(a.negPrefixLen, b.negPrefixLen); c != 0 {
		return c
	}

	return cmp.Compare(a.seq, b.seq)
}

// ID returns the device's identifier.
func (r *Router) ID() (id string) { return r.id }

// AddInterface registers an interface under name and wires its L2
// dispatcher.  It installs no route; ConfigureInterface adds the
// directly-connected route when it addresses the interface.
func (r *Router) AddInterface(name string, iface *simiface.Interface) {
	r.ifaces[name] = iface
	r.arps[name] = arpsvc.New()

	iface.SetOnReceive(func(frame *simpdu.EthernetFrame) {
		r.receive(name, frame)
	})
}

// Interface returns the named interface, if any.
func (r *Router) Interface(name string) (iface *simiface.Interface, ok bool) {
	iface, ok = r.ifaces[name]

	return iface, ok
}

// PortNames returns the names of every interface the router exposes, for
// the simulator to wire transmit hooks against at registration time.
func (r *Router) PortNames() (names []string) {
	names = make([]string, 0, len(r.ifaces))
	for name := range r.ifaces {
		names = append(names, name)
	}

	return names
}

// ConfigureInterface addresses the named interface and installs the
// matching directly-connected route.
func (r *Router) ConfigureInterface(name string, ip simaddr.IPAddress, mask simaddr.SubnetMask) (ok bool) {
	iface, exists := r.ifaces[name]
	if !exists {
		return false
	}

	iface.SetIP(ip, mask)

	r.AddRoute(mask.Network(ip), mask, simaddr.IPAddress{}, false, name)

	return true
}

// AddRoute installs a route.  hasNextHop should be false for
// directly-connected routes, where nextHop is unused.
func (r *Router) AddRoute(network simaddr.IPAddress, mask simaddr.SubnetMask, nextHop simaddr.IPAddress, hasNextHop bool, egress string) {
	r.routeSeq++

	entry := &RouteEntry{
		Network:             network,
		Mask:                mask,
		NextHop:             nextHop,
		HasNextHop:          hasNextHop,
		EgressInterface:     egress,
		IsDirectlyConnected: !hasNextHop,
		seq:                 r.routeSeq,
	}

	r.routes.Set(routeKey{negPrefixLen: -mask.PrefixLen(), seq: r.routeSeq}, entry)
}

// RemoveRoute removes the route matching network/mask exactly, if any.
func (r *Router) RemoveRoute(network simaddr.IPAddress, mask simaddr.SubnetMask) {
	var toDelete routeKey
	found := false

	r.routes.Range(func(k routeKey, e *RouteEntry) (cont bool) {
		if e.Network.Equal(network) && e.Mask.PrefixLen() == mask.PrefixLen() {
			toDelete, found = k, true

			return false
		}

		return true
	})

	if found {
		r.routes.Del(toDelete)
	}
}

// SetDefaultRoute installs or replaces the router's default route.
func (r *Router) SetDefaultRoute(nextHop simaddr.IPAddress, egress string) {
	r.defaultRoute = &RouteEntry{NextHop: nextHop, HasNextHop: true, EgressInterface: egress}
}

// Lookup returns the most specific route matching dst (largest prefix
// length, ties broken by insertion order), the default route if no
// specific route matches, or ok=false if neither exists.
func (r *Router) Lookup(dst simaddr.IPAddress) (route *RouteEntry, ok bool) {
	var found *RouteEntry

	r.routes.Range(func(_ routeKey, e *RouteEntry) (cont bool) {
		if e.Mask.SameNetwork(e.Network, dst) {
			found = e

			return false
		}

		return true
	})

	if found != nil {
		return found, true
	}

	if r.defaultRoute != nil {
		return r.defaultRoute, true
	}

	return nil, false
}

// EnableDHCPServer installs a DHCP server bound to the named interface's
// pool configuration.
func (r *Router) EnableDHCPServer(ifaceName string, conf *dhcpsvc.ServerConfig) (err error) {
	srv, err := dhcpsvc.NewServerService(r.logger, conf, nil)
	if err != nil {
		return err
	}

	r.dhcp[ifaceName] = srv

	return nil
}

// DisableDHCPServer removes the DHCP server bound to the named interface.
func (r *Router) DisableDHCPServer(ifaceName string) { delete(r.dhcp, ifaceName) }

// PowerOff takes the router offline and brings every interface down.
func (r *Router) PowerOff() {
	r.online = false

	for _, iface := range r.ifaces {
		iface.Down()
	}
}

// PowerOn brings the router back online.
func (r *Router) PowerOn() { r.online = true }

// IsOnline reports whether the router is powered on.
func (r *Router) IsOnline() (ok bool) { return r.online }
