package dhcpsvc

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simpdu"
)

// ClientState is a DHCP client's position in the DORA state machine.
type ClientState int

// The client states this implementation models. REBINDING and
// INIT-REBOOT are intentionally not modeled, since no renewal path here
// distinguishes them from a fresh discover/request cycle.
const (
	ClientInit ClientState = iota
	ClientSelecting
	ClientRequesting
	ClientBound
	ClientRenewing
)

// String implements the fmt.Stringer interface for ClientState.
func (s ClientState) String() (str string) {
	switch s {
	case ClientInit:
		return "INIT"
	case ClientSelecting:
		return "SELECTING"
	case ClientRequesting:
		return "REQUESTING"
	case ClientBound:
		return "BOUND"
	case ClientRenewing:
		return "RENEWING"
	default:
		return "UNKNOWN"
	}
}

// LeaseInfo is the configuration a client applies to its interface once
// bound.
type LeaseInfo struct {
	IP        simaddr.IPAddress
	Mask      simaddr.SubnetMask
	Gateway   simaddr.IPAddress
	DNS       []simaddr.IPAddress
	ServerIP  simaddr.IPAddress
	LeaseTime time.Duration
}

// ClientService is a single interface's DHCP client.
type ClientService struct {
	logger *slog.Logger
	mac    simaddr.MACAddress

	state ClientState
	xid   uint32
	lease LeaseInfo

	// applyConfig is called on the BOUND transition, normally wired to the
	// owning NetworkInterface's SetIP/SetGateway.
	applyConfig func(LeaseInfo)

	// clearConfig is called when the lease is discarded or released.
	clearConfig func()
}

// NewClientService creates a client bound to mac, notifying applyConfig and
// clearConfig as the state machine transitions.
func NewClientService(
	logger *slog.Logger,
	mac simaddr.MACAddress,
	applyConfig func(LeaseInfo),
	clearConfig func(),
) (cli *ClientService) {
	return &ClientService{
		logger:      logger,
		mac:         mac,
		state:       ClientInit,
		applyConfig: applyConfig,
		clearConfig: clearConfig,
	}
}

// State returns the client's current state.
func (cli *ClientService) State() (s ClientState) { return cli.state }

// StartDiscover transitions INIT -> SELECTING and builds the DISCOVER to
// broadcast.  It is a no-op, returning nil, if the client is not in INIT.
func (cli *ClientService) StartDiscover() (discover *simpdu.DHCPPacket) {
	if cli.state != ClientInit {
		return nil
	}

	cli.xid = rand.Uint32()
	cli.state = ClientSelecting

	return &simpdu.DHCPPacket{
		ClientMAC:   cli.mac,
		Xid:         cli.xid,
		MessageType: simpdu.DHCPDiscover,
	}
}

// HandleOffer transitions SELECTING -> REQUESTING on receipt of an OFFER,
// returning the REQUEST to send.  Offers received outside SELECTING, or
// with a stale Xid, are silently dropped.
func (cli *ClientService) HandleOffer(offer *simpdu.DHCPPacket) (request *simpdu.DHCPPacket) {
	if cli.state != ClientSelecting || offer.Xid != cli.xid {
		return nil
	}

	cli.state = ClientRequesting

	requestedIP := offer.YourIP

	return &simpdu.DHCPPacket{
		ClientMAC:   cli.mac,
		Xid:         cli.xid,
		MessageType: simpdu.DHCPRequest,
		Options:     simpdu.DHCPOptions{RequestedIP: &requestedIP},
	}
}

// HandleReply processes an ACK or NAK arriving in REQUESTING or RENEWING.
// On ACK it transitions to BOUND and applies the offered configuration,
// arming no timer itself (renewal is driven by the caller invoking
// StartRenewal). On NAK it discards the lease and returns to INIT. Replies
// outside those states, or with a stale Xid, are dropped.
func (cli *ClientService) HandleReply(reply *simpdu.DHCPPacket) (err error) {
	if reply.Xid != cli.xid {
		return nil
	}

	switch cli.state {
	case ClientRequesting, ClientRenewing:
	default:
		return nil
	}

	switch reply.MessageType {
	case simpdu.DHCPAck:
		cli.bind(reply)
	case simpdu.DHCPNak:
		cli.state = ClientInit
		cli.clearConfig()
	default:
		return errors.Error("dhcp client: unexpected reply type")
	}

	return nil
}

// bind applies reply's offered configuration and transitions to BOUND.
func (cli *ClientService) bind(reply *simpdu.DHCPPacket) {
	cli.state = ClientBound

	leaseTime := time.Duration(reply.Options.LeaseTime) * time.Second

	var mask simaddr.SubnetMask
	if reply.Options.SubnetMask != nil {
		mask = *reply.Options.SubnetMask
	}

	var gw simaddr.IPAddress
	if reply.Options.Router != nil {
		gw = *reply.Options.Router
	}

	cli.lease = LeaseInfo{
		IP:        reply.YourIP,
		Mask:      mask,
		Gateway:   gw,
		DNS:       reply.Options.DNS,
		ServerIP:  reply.ServerIP,
		LeaseTime: leaseTime,
	}

	cli.applyConfig(cli.lease)
}

// StartRenewal transitions BOUND -> RENEWING and returns the unicast
// REQUEST to send to the lease's server.
func (cli *ClientService) StartRenewal() (request *simpdu.DHCPPacket) {
	if cli.state != ClientBound {
		return nil
	}

	cli.xid = rand.Uint32()
	cli.state = ClientRenewing

	requestedIP := cli.lease.IP

	return &simpdu.DHCPPacket{
		ClientMAC:   cli.mac,
		Xid:         cli.xid,
		ClientIP:    cli.lease.IP,
		MessageType: simpdu.DHCPRequest,
		Options:     simpdu.DHCPOptions{RequestedIP: &requestedIP},
	}
}

// Release transitions to INIT, clears the interface's IP, and returns the
// RELEASE to emit.  It is a no-op, returning nil, outside BOUND/RENEWING.
func (cli *ClientService) Release() (release *simpdu.DHCPPacket) {
	switch cli.state {
	case ClientBound, ClientRenewing:
	default:
		return nil
	}

	ip := cli.lease.IP
	cli.state = ClientInit
	cli.lease = LeaseInfo{}
	cli.clearConfig()

	return &simpdu.DHCPPacket{
		ClientMAC:   cli.mac,
		Xid:         rand.Uint32(),
		ClientIP:    ip,
		MessageType: simpdu.DHCPRelease,
	}
}

// Lease returns the client's currently bound lease information.
func (cli *ClientService) Lease() (info LeaseInfo) { return cli.lease }
