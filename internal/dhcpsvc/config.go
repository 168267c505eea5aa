package dhcpsvc

import (
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/netfabric/simfabric/internal/simaddr"
)

// defaultLeaseTTL is the lease time used when a ServerConfig does not
// specify one.
const defaultLeaseTTL = 86400 * time.Second

// ServerConfig configures a DHCPServerService bound to a single interface.
type ServerConfig struct {
	// PoolStart and PoolEnd bound the inclusive address pool.
	PoolStart simaddr.IPAddress
	PoolEnd   simaddr.IPAddress

	// Mask is the subnet mask offered to clients.
	Mask simaddr.SubnetMask

	// Router is the default gateway offered to clients.  It is the zero
	// IPAddress if none is offered.
	Router simaddr.IPAddress

	// DNS is the list of DNS servers offered to clients.
	DNS []simaddr.IPAddress

	// DomainName is the local domain name offered to clients.  Optional.
	DomainName string

	// LeaseTime is the lease TTL.  Zero means defaultLeaseTTL.
	LeaseTime time.Duration

	// StaticReservations maps a client's MAC to a reserved IP.  Reserved
	// addresses may fall outside PoolStart..PoolEnd.
	StaticReservations map[simaddr.MACAddress]simaddr.IPAddress

	// Excluded lists addresses within the pool that must never be
	// allocated dynamically.
	Excluded []simaddr.IPAddress
}

// type check
var _ validate.Interface = (*ServerConfig)(nil)

// Validate implements the [validate.Interface] interface for *ServerConfig.
func (c *ServerConfig) Validate() (err error) {
	if c == nil {
		return errNilConfig
	}

	errs := []error{
		validate.NotNegative("LeaseTime", c.LeaseTime),
	}

	if _, rangeErr := newIPRange(c.PoolStart, c.PoolEnd); rangeErr != nil {
		errs = append(errs, rangeErr)
	}

	return errors.Join(errs...)
}

// leaseTTL returns c's effective lease time.
func (c *ServerConfig) leaseTTL() (ttl time.Duration) {
	if c.LeaseTime == 0 {
		return defaultLeaseTTL
	}

	return c.LeaseTime
}
