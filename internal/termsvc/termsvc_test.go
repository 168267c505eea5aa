package termsvc_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simdevice"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simnet"
	"github.com/netfabric/simfabric/internal/termsvc"
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

func TestService_ConfigureInterfaceAndPing(t *testing.T) {
	t.Parallel()

	sim := simnet.New(testLogger())
	svc := termsvc.New(testLogger(), sim)

	h1 := simdevice.NewHost("h1", testLogger())
	h1.AddInterface("eth0", simiface.New("eth0"))
	h2 := simdevice.NewHost("h2", testLogger())
	h2.AddInterface("eth0", simiface.New("eth0"))

	require.NoError(t, svc.RegisterHost(h1))
	require.NoError(t, svc.RegisterHost(h2))
	require.NoError(t, sim.Connect("h1", "eth0", "h2", "eth0"))

	require.NoError(t, svc.ConfigureInterface("h1", "eth0", mustIP(t, "10.0.0.1"), mustMask(t, 24), simaddr.IPAddress{}))
	require.NoError(t, svc.ConfigureInterface("h2", "eth0", mustIP(t, "10.0.0.2"), mustMask(t, 24), simaddr.IPAddress{}))

	iface1, ok := h1.Interface("eth0")
	require.True(t, ok)
	iface2, ok := h2.Interface("eth0")
	require.True(t, ok)

	// Pre-populate both ARP caches: a fresh ping would otherwise only emit an
	// ARP request and fail immediately, since resolution doesn't queue, and
	// h2 sends its Echo Reply through the same resolution.
	require.NoError(t, svc.AddARPEntry("h1", mustIP(t, "10.0.0.2"), iface2.MAC()))
	require.NoError(t, svc.AddARPEntry("h2", mustIP(t, "10.0.0.1"), iface1.MAC()))

	result, err := svc.SendPing("h1", mustIP(t, "10.0.0.2"), 64, 0)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestService_UnknownDevice(t *testing.T) {
	t.Parallel()

	sim := simnet.New(testLogger())
	svc := termsvc.New(testLogger(), sim)

	err := svc.ConfigureInterface("ghost", "eth0", simaddr.IPAddress{}, simaddr.SubnetMask{}, simaddr.IPAddress{})
	assert.ErrorIs(t, err, termsvc.ErrUnknownDevice)
}
