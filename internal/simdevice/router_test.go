package simdevice_test

import (
	"testing"

	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestRouter_LongestPrefixMatch(t *testing.T) {
	t.Parallel()

	r := simdevice.NewRouter("r0", testLogger())

	r.AddRoute(mustIP(t, "10.0.0.0"), mustMask(t, 8), simaddr.IPAddress{}, false, "eth0")
	r.AddRoute(mustIP(t, "10.1.0.0"), mustMask(t, 16), mustIP(t, "10.0.0.2"), true, "eth0")
	r.SetDefaultRoute(mustIP(t, "10.0.0.1"), "eth1")

	route, ok := r.Lookup(mustIP(t, "10.1.2.3"))
	require.True(t, ok)
	assert.Equal(t, "10.1.0.0", route.Network.String())
	assert.Equal(t, 16, route.Mask.PrefixLen())

	route, ok = r.Lookup(mustIP(t, "10.2.2.3"))
	require.True(t, ok)
	assert.Equal(t, "10.0.0.0", route.Network.String())

	route, ok = r.Lookup(mustIP(t, "192.168.1.1"))
	require.True(t, ok)
	assert.True(t, route.HasNextHop)
	assert.Equal(t, "10.0.0.1", route.NextHop.String())
}

func TestRouter_NoRoute(t *testing.T) {
	t.Parallel()

	r := simdevice.NewRouter("r0", testLogger())

	_, ok := r.Lookup(mustIP(t, "10.0.0.1"))
	assert.False(t, ok)
}
