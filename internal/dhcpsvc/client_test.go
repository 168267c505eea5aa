package dhcpsvc_test

import (
	"testing"

	"github.com/netfabric/simfabric/internal/dhcpsvc"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simpdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientService_FullLease(t *testing.T) {
	t.Parallel()

	mac, err := simaddr.ParseMACAddress("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)

	var applied dhcpsvc.LeaseInfo
	var cleared bool

	cli := dhcpsvc.NewClientService(testLogger(), mac, func(li dhcpsvc.LeaseInfo) {
		applied = li
	}, func() {
		cleared = true
	})

	assert.Equal(t, dhcpsvc.ClientInit, cli.State())

	discover := cli.StartDiscover()
	require.NotNil(t, discover)
	assert.Equal(t, dhcpsvc.ClientSelecting, cli.State())
	assert.Equal(t, simpdu.DHCPDiscover, discover.MessageType)

	mask := mustMask(t, 24)
	router := mustIP(t, "192.168.1.1")
	offer := &simpdu.DHCPPacket{
		Xid:         discover.Xid,
		YourIP:      mustIP(t, "192.168.1.100"),
		MessageType: simpdu.DHCPOffer,
		Options:     simpdu.DHCPOptions{SubnetMask: &mask, Router: &router},
	}

	request := cli.HandleOffer(offer)
	require.NotNil(t, request)
	assert.Equal(t, dhcpsvc.ClientRequesting, cli.State())
	assert.Equal(t, simpdu.DHCPRequest, request.MessageType)
	require.NotNil(t, request.Options.RequestedIP)
	assert.Equal(t, "192.168.1.100", request.Options.RequestedIP.String())

	ack := &simpdu.DHCPPacket{
		Xid:         discover.Xid,
		YourIP:      mustIP(t, "192.168.1.100"),
		MessageType: simpdu.DHCPAck,
		Options:     simpdu.DHCPOptions{SubnetMask: &mask, Router: &router, LeaseTime: 3600},
	}

	err = cli.HandleReply(ack)
	require.NoError(t, err)
	assert.Equal(t, dhcpsvc.ClientBound, cli.State())
	assert.Equal(t, "192.168.1.100", applied.IP.String())

	release := cli.Release()
	require.NotNil(t, release)
	assert.Equal(t, simpdu.DHCPRelease, release.MessageType)
	assert.Equal(t, dhcpsvc.ClientInit, cli.State())
	assert.True(t, cleared)
}

func TestClientService_Nak(t *testing.T) {
	t.Parallel()

	mac, err := simaddr.ParseMACAddress("aa:bb:cc:dd:ee:02")
	require.NoError(t, err)

	cli := dhcpsvc.NewClientService(testLogger(), mac, func(dhcpsvc.LeaseInfo) {}, func() {})

	discover := cli.StartDiscover()
	offer := &simpdu.DHCPPacket{Xid: discover.Xid, MessageType: simpdu.DHCPOffer}
	cli.HandleOffer(offer)

	nak := &simpdu.DHCPPacket{Xid: discover.Xid, MessageType: simpdu.DHCPNak}
	err = cli.HandleReply(nak)
	require.NoError(t, err)
	assert.Equal(t, dhcpsvc.ClientInit, cli.State())
}
