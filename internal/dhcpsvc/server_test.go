package dhcpsvc_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/netfabric/simfabric/internal/dhcpsvc"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simpdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() (l *slog.Logger) { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func mustIP(t *testing.T, s string) (ip simaddr.IPAddress) {
	t.Helper()

	ip, err := simaddr.ParseIPAddress(s)
	require.NoError(t, err)

	return ip
}

func mustMask(t *testing.T, cidr int) (m simaddr.SubnetMask) {
	t.Helper()

	m, err := simaddr.NewSubnetMaskCIDR(cidr)
	require.NoError(t, err)

	return m
}

func TestServerService_DORA(t *testing.T) {
	t.Parallel()

	conf := &dhcpsvc.ServerConfig{
		PoolStart: mustIP(t, "192.168.1.100"),
		PoolEnd:   mustIP(t, "192.168.1.200"),
		Mask:      mustMask(t, 24),
		Router:    mustIP(t, "192.168.1.1"),
	}

	srv, err := dhcpsvc.NewServerService(testLogger(), conf, nil)
	require.NoError(t, err)

	mac1, err := simaddr.ParseMACAddress("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)

	offer := srv.HandleDiscover(mac1, 1)
	require.NotNil(t, offer)
	assert.Equal(t, "192.168.1.100", offer.YourIP.String())
	require.NotNil(t, offer.Options.SubnetMask)
	assert.Equal(t, 24, offer.Options.SubnetMask.PrefixLen())

	ack := srv.HandleRequest(mac1, 1, offer.YourIP)
	require.NotNil(t, ack)
	assert.Equal(t, simpdu.DHCPAck, ack.MessageType)
	assert.Equal(t, "192.168.1.100", ack.YourIP.String())

	mac2, err := simaddr.ParseMACAddress("aa:bb:cc:dd:ee:02")
	require.NoError(t, err)

	offer2 := srv.HandleDiscover(mac2, 2)
	require.NotNil(t, offer2)
	assert.Equal(t, "192.168.1.101", offer2.YourIP.String())

	leases := srv.Leases()
	require.Len(t, leases, 1)
	assert.Equal(t, mac1, leases[0].ClientMAC)
}

func TestServerService_PoolExhaustion(t *testing.T) {
	t.Parallel()

	conf := &dhcpsvc.ServerConfig{
		PoolStart: mustIP(t, "192.168.1.100"),
		PoolEnd:   mustIP(t, "192.168.1.101"),
		Mask:      mustMask(t, 24),
	}

	srv, err := dhcpsvc.NewServerService(testLogger(), conf, nil)
	require.NoError(t, err)

	macs := []string{
		"aa:bb:cc:dd:ee:01",
		"aa:bb:cc:dd:ee:02",
		"aa:bb:cc:dd:ee:03",
	}

	for i, s := range macs {
		mac, macErr := simaddr.ParseMACAddress(s)
		require.NoError(t, macErr)

		offer := srv.HandleDiscover(mac, uint32(i))
		if i < 2 {
			require.NotNilf(t, offer, "client %d should get an offer", i)

			ack := srv.HandleRequest(mac, uint32(i), offer.YourIP)
			require.NotNil(t, ack)

			continue
		}

		assert.Nilf(t, offer, "client %d should be refused: pool exhausted", i)
	}
}

func TestServerService_Nak(t *testing.T) {
	t.Parallel()

	conf := &dhcpsvc.ServerConfig{
		PoolStart: mustIP(t, "192.168.1.100"),
		PoolEnd:   mustIP(t, "192.168.1.200"),
		Mask:      mustMask(t, 24),
	}

	srv, err := dhcpsvc.NewServerService(testLogger(), conf, nil)
	require.NoError(t, err)

	mac, err := simaddr.ParseMACAddress("aa:bb:cc:dd:ee:01")
	require.NoError(t, err)

	reply := srv.HandleRequest(mac, 1, mustIP(t, "192.168.1.150"))
	require.NotNil(t, reply)
	assert.Equal(t, simpdu.DHCPNak, reply.MessageType)
}
