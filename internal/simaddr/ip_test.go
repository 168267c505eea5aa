package simaddr_test

import (
	"testing"

	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPAddress(t *testing.T) {
	t.Parallel()

	ip, err := simaddr.ParseIPAddress("192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", ip.String())
	assert.Equal(t, uint32(0xc0000201), ip.Uint32())

	_, err = simaddr.ParseIPAddress("not-an-ip")
	assert.ErrorIs(t, err, simaddr.ErrMalformedIP)

	_, err = simaddr.ParseIPAddress("::1")
	assert.ErrorIs(t, err, simaddr.ErrMalformedIP)
}

func TestSubnetMask_dotted(t *testing.T) {
	t.Parallel()

	m, err := simaddr.NewSubnetMaskDotted("255.255.255.0")
	require.NoError(t, err)
	assert.Equal(t, 24, m.PrefixLen())

	_, err = simaddr.NewSubnetMaskDotted("255.0.255.0")
	assert.ErrorIs(t, err, simaddr.ErrMalformedMask)
}

func TestSubnetMask_network(t *testing.T) {
	t.Parallel()

	m, err := simaddr.NewSubnetMaskCIDR(24)
	require.NoError(t, err)

	a := must(t, simaddr.ParseIPAddress("192.0.2.17"))
	b := must(t, simaddr.ParseIPAddress("192.0.2.200"))
	c := must(t, simaddr.ParseIPAddress("192.0.3.1"))

	assert.True(t, m.SameNetwork(a, b))
	assert.False(t, m.SameNetwork(a, c))
	assert.Equal(t, "192.0.2.0", m.Network(a).String())
}

func TestMACAddress(t *testing.T) {
	t.Parallel()

	mac, err := simaddr.ParseMACAddress("02:00:00:00:00:01")
	require.NoError(t, err)
	assert.False(t, mac.IsBroadcast())
	assert.False(t, mac.IsMulticast())

	assert.True(t, simaddr.BroadcastMAC.IsBroadcast())
	assert.True(t, simaddr.BroadcastMAC.IsMulticast())

	gen := simaddr.NewLocallyAdministeredMAC()
	b := gen.Bytes()
	assert.Equal(t, byte(0x02), b[0]&0x02)
}

func must(t *testing.T, ip simaddr.IPAddress, err error) simaddr.IPAddress {
	t.Helper()
	require.NoError(t, err)

	return ip
}
