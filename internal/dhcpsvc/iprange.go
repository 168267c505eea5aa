package dhcpsvc

import (
	"fmt"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/netfabric/simfabric/internal/simaddr"
)

// ipRange is an inclusive range of IPv4 addresses, used as a DHCP pool's
// address space.
type ipRange struct {
	start netip.Addr
	end   netip.Addr
}

// newIPRange creates a new IP address range.  start must be less than or
// equal to end, and both must be IPv4.
func newIPRange(start, end simaddr.IPAddress) (r ipRange, err error) {
	defer func() { err = errors.Annotate(err, "invalid ip range: %w") }()

	s, e := start.Netip(), end.Netip()

	if e.Less(s) {
		return ipRange{}, fmt.Errorf("start %s is greater than end %s", s, e)
	}

	return ipRange{start: s, end: e}, nil
}

// contains reports whether r contains ip.
func (r ipRange) contains(ip simaddr.IPAddress) (ok bool) {
	addr := ip.Netip()

	return !addr.Less(r.start) && !r.end.Less(addr)
}

// ipPredicate is called on every address in [ipRange.find].
type ipPredicate func(ip simaddr.IPAddress) (ok bool)

// find returns the first address in r for which p returns true, in
// ascending order.  It returns the zero IPAddress if none satisfies p,
// which callers use to detect pool exhaustion.
func (r ipRange) find(p ipPredicate) (ip simaddr.IPAddress) {
	for addr := r.start; !r.end.Less(addr); addr = addr.Next() {
		candidate := simaddr.IPAddressFromNetip(addr)
		if p(candidate) {
			return candidate
		}
	}

	return simaddr.IPAddress{}
}

// String implements the fmt.Stringer interface for ipRange.
func (r ipRange) String() (s string) {
	return fmt.Sprintf("%s-%s", r.start, r.end)
}
