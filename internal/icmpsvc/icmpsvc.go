// Package icmpsvc implements the pending-echo correlation registry used by
// ping and traceroute. Waiting on a reply is non-panicking and cancellable,
// since a failed ping must return an error value rather than crash the
// caller.
package icmpsvc

import (
	"sync"
	"time"

	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// echoKey correlates an Echo Request with its Echo Reply.
type echoKey struct {
	identifier uint16
	sequence   uint16
}

// EchoResult is delivered to a pending slot's channel when it completes by
// reply or by CancelAll.  On timeout, WaitTimeout returns one itself without
// sending it on the channel.
type EchoResult struct {
	Source simaddr.IPAddress
	Reply  *simpdu.ICMPPacket
	Err    error
}

// Service is the per-host/per-router ICMP echo correlation registry.
type Service struct {
	mu      sync.Mutex
	pending map[echoKey]chan EchoResult

	nextID atomicCounter
}

// New creates an empty ICMP service.
func New() (svc *Service) {
	return &Service{pending: map[echoKey]chan EchoResult{}}
}

// CreateEchoRequest builds an Echo Request with a fresh identifier (scoped
// to this service) and the given sequence and payload, and registers a
// pending slot for it.  The returned channel receives at most one
// EchoResult: from HandleEchoReply or from CancelAll.  A caller-driven
// timeout via WaitTimeout discards the slot and sends nothing.
func (svc *Service) CreateEchoRequest(ttl uint8, sequence uint16, payload []byte) (req *simpdu.ICMPPacket, wait <-chan EchoResult) {
	id := svc.nextID.next()

	req = &simpdu.ICMPPacket{
		Type:       simpdu.ICMPEchoRequest,
		Identifier: id,
		Sequence:   sequence,
		Payload:    payload,
	}

	ch := make(chan EchoResult, 1)

	svc.mu.Lock()
	svc.pending[echoKey{identifier: id, sequence: sequence}] = ch
	svc.mu.Unlock()

	return req, ch
}

// HandleEchoReply completes the pending slot matching reply's identifier
// and sequence, if any.  A late or unsolicited reply (no matching slot) is
// discarded.
func (svc *Service) HandleEchoReply(src simaddr.IPAddress, reply *simpdu.ICMPPacket) {
	key := echoKey{identifier: reply.Identifier, sequence: reply.Sequence}

	svc.mu.Lock()
	ch, ok := svc.pending[key]
	if ok {
		delete(svc.pending, key)
	}
	svc.mu.Unlock()

	if !ok {
		return
	}

	ch <- EchoResult{Source: src, Reply: reply}
}

// WaitTimeout blocks on wait until a result arrives or timeout elapses,
// discarding the pending slot identified by (identifier, sequence) on
// timeout so a late reply is treated as unsolicited.
func (svc *Service) WaitTimeout(
	identifier, sequence uint16,
	wait <-chan EchoResult,
	timeout time.Duration,
) (res EchoResult) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res = <-wait:
		return res
	case <-timer.C:
		svc.mu.Lock()
		delete(svc.pending, echoKey{identifier: identifier, sequence: sequence})
		svc.mu.Unlock()

		return EchoResult{Err: errTimeout}
	}
}

// CancelAll completes every pending slot with err, for use when the owning
// device is powered off.
func (svc *Service) CancelAll(err error) {
	svc.mu.Lock()
	pending := svc.pending
	svc.pending = map[echoKey]chan EchoResult{}
	svc.mu.Unlock()

	for _, ch := range pending {
		ch <- EchoResult{Err: err}
	}
}

// atomicCounter hands out identifiers in a simple, lock-protected sequence.
type atomicCounter struct {
	mu sync.Mutex
	n  uint16
}

func (c *atomicCounter) next() (n uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.n++

	return c.n
}
