package dhcpsvc

import (
	"log/slog"
	"time"

	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simpdu"
	"github.com/prometheus/client_golang/prometheus"
)

// addressChecker checks a candidate address for conflicts before it is
// offered, as RFC 2131 section 2.2 recommends.  The upstream DHCP service
// left this as an unimplemented TODO behind a no-op; ICMPAddressChecker
// satisfies this interface by driving a real ICMP echo, built with
// icmpsvc.Service, through the simulator.
type addressChecker interface {
	// IsAvailable reports whether ip appears free on the network.
	IsAvailable(ip simaddr.IPAddress) (ok bool)
}

// noopAddressChecker always reports an address as available, and is the
// default when NewServerService is given a nil checker.
type noopAddressChecker struct{}

// IsAvailable implements the addressChecker interface for noopAddressChecker.
func (noopAddressChecker) IsAvailable(simaddr.IPAddress) (ok bool) { return true }

// ServerStats holds the DHCP server's monotonic statistics counters.
type ServerStats struct {
	DiscoversReceived uint64
	OffersSent        uint64
	RequestsReceived  uint64
	AcksSent          uint64
	NaksSent          uint64
}

// serverMetrics are the process-wide Prometheus counters backing
// ServerStats.
type serverMetrics struct {
	discovers prometheus.Counter
	offers    prometheus.Counter
	requests  prometheus.Counter
	acks      prometheus.Counter
	naks      prometheus.Counter
	leases    prometheus.Gauge
}

func newServerMetrics(iface string) (m *serverMetrics) {
	labels := prometheus.Labels{"interface": iface}

	return &serverMetrics{
		discovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simfabric", Subsystem: "dhcp", Name: "discovers_received_total",
			ConstLabels: labels,
		}),
		offers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simfabric", Subsystem: "dhcp", Name: "offers_sent_total",
			ConstLabels: labels,
		}),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simfabric", Subsystem: "dhcp", Name: "requests_received_total",
			ConstLabels: labels,
		}),
		acks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simfabric", Subsystem: "dhcp", Name: "acks_sent_total",
			ConstLabels: labels,
		}),
		naks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simfabric", Subsystem: "dhcp", Name: "naks_sent_total",
			ConstLabels: labels,
		}),
		leases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simfabric", Subsystem: "dhcp", Name: "active_leases",
			ConstLabels: labels,
		}),
	}
}

// ServerService implements the DHCP server DORA state machine, scoped to
// a single interface's pool.
type ServerService struct {
	logger  *slog.Logger
	clock   timeutil.Clock
	conf    *ServerConfig
	checker addressChecker

	pool ipRange

	// leases is indexed by client MAC, keeping the client-to-address
	// mapping injective.
	leases map[simaddr.MACAddress]*Lease

	// reserved tracks addresses currently leased or tentatively offered,
	// for injective allocation and pool-exhaustion detection.
	reserved map[simaddr.IPAddress]bool

	// offers maps a client's MAC to the address HandleDiscover tentatively
	// offered it and no ACK has committed yet.
	offers map[simaddr.MACAddress]simaddr.IPAddress

	Stats   ServerStats
	metrics *serverMetrics
}

// NewServerService creates a DHCP server bound to conf.  logger must not be
// nil.  checker may be nil, in which case addresses are never
// conflict-checked.
func NewServerService(logger *slog.Logger, conf *ServerConfig, checker addressChecker) (srv *ServerService, err error) {
	err = conf.Validate()
	if err != nil {
		return nil, err
	}

	pool, err := newIPRange(conf.PoolStart, conf.PoolEnd)
	if err != nil {
		return nil, err
	}

	if checker == nil {
		checker = noopAddressChecker{}
	}

	reserved := map[simaddr.IPAddress]bool{}
	for _, ip := range conf.Excluded {
		reserved[ip] = true
	}

	for _, ip := range conf.StaticReservations {
		reserved[ip] = true
	}

	return &ServerService{
		logger:   logger,
		clock:    timeutil.SystemClock{},
		conf:     conf,
		checker:  checker,
		pool:     pool,
		leases:   map[simaddr.MACAddress]*Lease{},
		reserved: reserved,
		offers:   map[simaddr.MACAddress]simaddr.IPAddress{},
		metrics:  newServerMetrics("dhcp"),
	}, nil
}

// HandleDiscover processes a DISCOVER from clientMAC and returns the OFFER
// to send, or nil if the pool is exhausted.
func (srv *ServerService) HandleDiscover(clientMAC simaddr.MACAddress, xid uint32) (offer *simpdu.DHCPPacket) {
	srv.Stats.DiscoversReceived++
	srv.metrics.discovers.Inc()

	ip, ok := srv.offerAddressFor(clientMAC)
	if !ok {
		srv.logger.Debug("dhcp pool exhausted", "mac", clientMAC)

		return nil
	}

	srv.Stats.OffersSent++
	srv.metrics.offers.Inc()

	return srv.buildReply(simpdu.DHCPOffer, clientMAC, xid, ip)
}

// offerAddressFor picks the address to offer clientMAC: its static
// reservation, its existing lease, its pending offer, or the lowest free pool
// address.
func (srv *ServerService) offerAddressFor(clientMAC simaddr.MACAddress) (ip simaddr.IPAddress, ok bool) {
	if reservedIP, has := srv.conf.StaticReservations[clientMAC]; has {
		return reservedIP, true
	}

	if lease, has := srv.leases[clientMAC]; has && !lease.expired(srv.clock) {
		return lease.AssignedIP, true
	}

	if offered, has := srv.offers[clientMAC]; has {
		return offered, true
	}

	ip = srv.pool.find(func(candidate simaddr.IPAddress) (free bool) {
		return !srv.reserved[candidate] && srv.checker.IsAvailable(candidate)
	})

	if ip.IsZero() {
		return simaddr.IPAddress{}, false
	}

	srv.reserved[ip] = true
	srv.offers[clientMAC] = ip

	return ip, true
}

// HandleRequest processes a REQUEST carrying requestedIP from clientMAC.
// It commits the lease and returns an ACK, or returns a NAK if
// requestedIP doesn't match the tentative or current offer.
func (srv *ServerService) HandleRequest(
	clientMAC simaddr.MACAddress,
	xid uint32,
	requestedIP simaddr.IPAddress,
) (reply *simpdu.DHCPPacket) {
	srv.Stats.RequestsReceived++
	srv.metrics.requests.Inc()

	want, ok := srv.offerAddressFor(clientMAC)
	if !ok || !want.Equal(requestedIP) {
		srv.Stats.NaksSent++
		srv.metrics.naks.Inc()

		return srv.buildReply(simpdu.DHCPNak, clientMAC, xid, simaddr.IPAddress{})
	}

	srv.leases[clientMAC] = &Lease{
		ClientMAC:  clientMAC,
		AssignedIP: requestedIP,
		ExpiresAt:  srv.clock.Now().Add(srv.conf.leaseTTL()),
	}
	srv.reserved[requestedIP] = true
	delete(srv.offers, clientMAC)
	srv.metrics.leases.Set(float64(len(srv.leases)))

	srv.Stats.AcksSent++
	srv.metrics.acks.Inc()

	return srv.buildReply(simpdu.DHCPAck, clientMAC, xid, requestedIP)
}

// HandleRelease frees clientMAC's lease, if any.
func (srv *ServerService) HandleRelease(clientMAC simaddr.MACAddress) {
	lease, ok := srv.leases[clientMAC]
	if !ok {
		return
	}

	delete(srv.leases, clientMAC)
	delete(srv.reserved, lease.AssignedIP)
	srv.metrics.leases.Set(float64(len(srv.leases)))
}

// Leases returns a snapshot of the currently active leases.
func (srv *ServerService) Leases() (leases []*Lease) {
	leases = make([]*Lease, 0, len(srv.leases))
	for _, l := range srv.leases {
		leases = append(leases, l.Clone())
	}

	return leases
}

// buildReply assembles a DHCP reply of the given message type addressed
// to clientMAC, carrying the server's offered configuration.
func (srv *ServerService) buildReply(
	typ simpdu.DHCPMessageType,
	clientMAC simaddr.MACAddress,
	xid uint32,
	yourIP simaddr.IPAddress,
) (reply *simpdu.DHCPPacket) {
	opts := simpdu.DHCPOptions{
		Hostname: srv.conf.DomainName,
	}

	if typ != simpdu.DHCPNak {
		mask := srv.conf.Mask
		opts.SubnetMask = &mask

		if !srv.conf.Router.IsZero() {
			router := srv.conf.Router
			opts.Router = &router
		}

		opts.DNS = srv.conf.DNS

		leaseSeconds := uint32(srv.conf.leaseTTL() / time.Second)
		opts.LeaseTime = leaseSeconds
	}

	return &simpdu.DHCPPacket{
		ClientMAC:   clientMAC,
		Xid:         xid,
		YourIP:      yourIP,
		MessageType: typ,
		Options:     opts,
	}
}
