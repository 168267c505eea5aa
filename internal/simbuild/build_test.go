package simbuild_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simbuild"
	"github.com/netfabric/simfabric/internal/simnet"
	"github.com/netfabric/simfabric/internal/termsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() (l *slog.Logger) { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestApply_BuildsAndLinksDevices(t *testing.T) {
	t.Parallel()

	topo := &simnet.TopologyFile{
		Devices: []simnet.TopologyDevice{
			{ID: "h1", Kind: simbuild.KindHost, Ports: []string{"eth0"}},
			{ID: "sw0", Kind: simbuild.KindSwitch, Ports: []string{"p1", "p2"}},
			{ID: "h2", Kind: simbuild.KindHost, Ports: []string{"eth0"}},
		},
		Links: []simnet.TopologyLink{
			{DeviceA: "h1", PortA: "eth0", DeviceB: "sw0", PortB: "p1"},
			{DeviceA: "h2", PortA: "eth0", DeviceB: "sw0", PortB: "p2"},
		},
	}

	sim := simnet.New(testLogger())
	svc := termsvc.New(testLogger(), sim)

	require.NoError(t, simbuild.Apply(testLogger(), sim, svc, topo))

	var sent []simnet.FrameSentEvent
	sim.Events().SubscribeSent(func(ev simnet.FrameSentEvent) { sent = append(sent, ev) })

	ip, err := simaddr.ParseIPAddress("10.0.0.1")
	require.NoError(t, err)
	mask, err := simaddr.NewSubnetMaskCIDR(24)
	require.NoError(t, err)

	err = svc.ConfigureInterface("h1", "eth0", ip, mask, simaddr.IPAddress{})
	require.NoError(t, err)

	assert.Empty(t, sent)
}

func TestApply_UnknownKind(t *testing.T) {
	t.Parallel()

	topo := &simnet.TopologyFile{
		Devices: []simnet.TopologyDevice{{ID: "x", Kind: "mystery"}},
	}

	sim := simnet.New(testLogger())
	svc := termsvc.New(testLogger(), sim)

	err := simbuild.Apply(testLogger(), sim, svc, topo)
	assert.Error(t, err)
}
