// Package arpsvc implements the ARP cache and request/reply builders shared
// by hosts and routers, grounded on the locking discipline the upstream
// DHCP service uses to guard its per-interface lease index
// (internal/dhcpsvc's netInterface.indexMu).
package arpsvc

import (
	"sync"
	"time"

	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// CacheEntry is a single learned IP-to-MAC mapping.
type CacheEntry struct {
	MAC         simaddr.MACAddress
	InstalledAt time.Time
}

// Service is an ARP cache plus request/reply builders.  It is safe for
// concurrent use, though the simulator's cooperative scheduling model means
// callers in practice never contend.
type Service struct {
	mu    sync.RWMutex
	cache map[simaddr.IPAddress]CacheEntry

	// now returns the current time; overridable in tests.
	now func() time.Time
}

// New creates an empty ARP service.
func New() (svc *Service) {
	return &Service{
		cache: map[simaddr.IPAddress]CacheEntry{},
		now:   time.Now,
	}
}

// CreateRequest builds an ARP request from (ourIP, ourMAC) asking who has
// targetIP.  The target MAC is the zero address, since discovering it is
// the point of the request.
func CreateRequest(ourIP simaddr.IPAddress, ourMAC simaddr.MACAddress, targetIP simaddr.IPAddress) (p *simpdu.ARPPacket) {
	return &simpdu.ARPPacket{
		Operation: simpdu.ARPRequest,
		SenderIP:  ourIP,
		SenderMAC: ourMAC,
		TargetIP:  targetIP,
		TargetMAC: simpdu.ZeroMAC,
	}
}

// CreateReply builds an ARP reply from (ourIP, ourMAC) to the requester
// identified by (requesterIP, requesterMAC).
func CreateReply(
	ourIP simaddr.IPAddress,
	ourMAC simaddr.MACAddress,
	requesterIP simaddr.IPAddress,
	requesterMAC simaddr.MACAddress,
) (p *simpdu.ARPPacket) {
	return &simpdu.ARPPacket{
		Operation: simpdu.ARPReply,
		SenderIP:  ourIP,
		SenderMAC: ourMAC,
		TargetIP:  requesterIP,
		TargetMAC: requesterMAC,
	}
}

// ProcessPacket unconditionally learns p's sender mapping (gratuitous
// learning) and reports whether p is a request targeting ourIP, in which
// case the caller must synthesize and emit a reply.
func (svc *Service) ProcessPacket(p *simpdu.ARPPacket, ourIP simaddr.IPAddress) (needsReply bool) {
	svc.mu.Lock()
	svc.cache[p.SenderIP] = CacheEntry{MAC: p.SenderMAC, InstalledAt: svc.now()}
	svc.mu.Unlock()

	return p.Operation == simpdu.ARPRequest && p.TargetIP.Equal(ourIP)
}

// Resolve looks up ip in the cache.  It never blocks and never sends a
// request of its own.
func (svc *Service) Resolve(ip simaddr.IPAddress) (mac simaddr.MACAddress, ok bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	entry, ok := svc.cache[ip]

	return entry.MAC, ok
}

// AddStaticEntry installs a static cache entry, for the terminal's
// add_arp_entry operation.
func (svc *Service) AddStaticEntry(ip simaddr.IPAddress, mac simaddr.MACAddress) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.cache[ip] = CacheEntry{MAC: mac, InstalledAt: svc.now()}
}

// Table returns a snapshot of the cache, for the terminal's get_arp_table
// operation.
func (svc *Service) Table() (table map[simaddr.IPAddress]CacheEntry) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	table = make(map[simaddr.IPAddress]CacheEntry, len(svc.cache))
	for k, v := range svc.cache {
		table[k] = v
	}

	return table
}
