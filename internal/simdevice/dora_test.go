package simdevice_test

import (
	"testing"
	"time"

	"github.com/netfabric/simfabric/internal/dhcpsvc"
	"github.com/netfabric/simfabric/internal/simdevice"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simnet"
	"github.com/stretchr/testify/require"
)

// TestDORA_ThroughRouterServer exercises Discover-Offer-Request-Ack
// end-to-end across a link between a host and a router-hosted DHCP server,
// including the limited-broadcast delivery both sides depend on before the
// host has an address.
func TestDORA_ThroughRouterServer(t *testing.T) {
	t.Parallel()

	sim := simnet.New(testLogger())

	r := simdevice.NewRouter("r0", testLogger())
	r.AddInterface("lan0", simiface.New("lan0"))
	rIface, _ := r.Interface("lan0")
	rIface.Up()
	require.True(t, r.ConfigureInterface("lan0", mustIP(t, "10.0.0.1"), mustMask(t, 24)))

	require.NoError(t, r.EnableDHCPServer("lan0", &dhcpsvc.ServerConfig{
		PoolStart: mustIP(t, "10.0.0.100"),
		PoolEnd:   mustIP(t, "10.0.0.200"),
		Mask:      mustMask(t, 24),
		Router:    mustIP(t, "10.0.0.1"),
	}))

	h := simdevice.NewHost("h0", testLogger())
	h.AddInterface("eth0", simiface.New("eth0"))
	hIface, _ := h.Interface("eth0")
	hIface.Up()

	require.NoError(t, sim.Register(r, r.IsOnline))
	require.NoError(t, sim.Register(h, h.IsOnline))
	require.NoError(t, sim.Connect("h0", "eth0", "r0", "lan0"))

	require.True(t, h.EnableDHCPClient("eth0"))
	require.NoError(t, h.StartDHCPDiscover("eth0"))

	leasedIP, mask, ok := hIface.IP()
	require.True(t, ok, "host should have bound a lease by the end of DORA")
	require.True(t, leasedIP.Uint32() >= mustIP(t, "10.0.0.100").Uint32())
	require.True(t, leasedIP.Uint32() <= mustIP(t, "10.0.0.200").Uint32())
	require.Equal(t, 24, mask.PrefixLen())
	require.Equal(t, "10.0.0.1", hIface.Gateway().String())
}

// TestHost_Traceroute_ResolvesIntermediateHop checks that a router between
// the source host and the destination replies with its own address instead
// of the hop always timing out.
func TestHost_Traceroute_ResolvesIntermediateHop(t *testing.T) {
	t.Parallel()

	sim := simnet.New(testLogger())

	r := simdevice.NewRouter("r0", testLogger())
	r.AddInterface("lan0", simiface.New("lan0"))
	lan0, _ := r.Interface("lan0")
	lan0.Up()
	require.True(t, r.ConfigureInterface("lan0", mustIP(t, "10.0.0.1"), mustMask(t, 24)))

	r.AddInterface("lan1", simiface.New("lan1"))
	lan1, _ := r.Interface("lan1")
	lan1.Up()
	require.True(t, r.ConfigureInterface("lan1", mustIP(t, "10.0.1.1"), mustMask(t, 24)))

	src := simdevice.NewHost("src", testLogger())
	src.AddInterface("eth0", simiface.New("eth0"))
	srcIface, _ := src.Interface("eth0")
	srcIface.Up()
	srcIface.SetIP(mustIP(t, "10.0.0.10"), mustMask(t, 24))
	srcIface.SetGateway(mustIP(t, "10.0.0.1"))

	dst := simdevice.NewHost("dst", testLogger())
	dst.AddInterface("eth0", simiface.New("eth0"))
	dstIface, _ := dst.Interface("eth0")
	dstIface.Up()
	dstIface.SetIP(mustIP(t, "10.0.1.10"), mustMask(t, 24))
	dstIface.SetGateway(mustIP(t, "10.0.1.1"))

	require.NoError(t, sim.Register(r, r.IsOnline))
	require.NoError(t, sim.Register(src, src.IsOnline))
	require.NoError(t, sim.Register(dst, dst.IsOnline))
	require.NoError(t, sim.Connect("src", "eth0", "r0", "lan0"))
	require.NoError(t, sim.Connect("dst", "eth0", "r0", "lan1"))

	// The simulator resolves ARP synchronously but only on demand: a link's
	// first packet triggers the ARP exchange and is itself dropped. Run one
	// throwaway pass to warm every hop's ARP cache before measuring, the way
	// a real traceroute's first run over a cold network also would.
	_ = src.Traceroute(mustIP(t, "10.0.1.10"), 4, 300*time.Millisecond)

	hops := src.Traceroute(mustIP(t, "10.0.1.10"), 4, 300*time.Millisecond)
	require.Len(t, hops, 2)

	require.False(t, hops[0].TimedOut, "the router hop should reply instead of timing out")
	require.Equal(t, "10.0.0.1", hops[0].Replier.String())

	require.False(t, hops[1].TimedOut)
	require.Equal(t, "10.0.1.10", hops[1].Replier.String())
}
