package dhcpsvc

import (
	"time"

	"github.com/netfabric/simfabric/internal/icmpsvc"
	"github.com/netfabric/simfabric/internal/simaddr"
)

// ICMPAddressChecker probes a candidate address with an ICMP echo before it
// is offered, completing the TODO the upstream DHCP service left in
// addresschecker.go ("Add ICMP implementation of addressChecker").  An
// address is considered available when no reply arrives within Timeout,
// since a reply means some other host already holds it.
type ICMPAddressChecker struct {
	ICMP    *icmpsvc.Service
	Probe   func(target simaddr.IPAddress, req []byte)
	Timeout time.Duration
}

// type check
var _ addressChecker = (*ICMPAddressChecker)(nil)

// IsAvailable implements the addressChecker interface for
// *ICMPAddressChecker.
func (c *ICMPAddressChecker) IsAvailable(ip simaddr.IPAddress) (ok bool) {
	if c.ICMP == nil || c.Probe == nil || c.Timeout <= 0 {
		return true
	}

	req, wait := c.ICMP.CreateEchoRequest(64, 1, nil)

	reqBytes, err := req.ToBytes()
	if err != nil {
		return true
	}

	c.Probe(ip, reqBytes)

	res := c.ICMP.WaitTimeout(req.Identifier, req.Sequence, wait, c.Timeout)

	return res.Err != nil
}
