package simnet_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simdevice"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simnet"
	"github.com/netfabric/simfabric/internal/simpdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() (l *slog.Logger) { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSimulator_DeliversFrame(t *testing.T) {
	t.Parallel()

	sim := simnet.New(testLogger())

	h1 := simdevice.NewHost("h1", testLogger())
	h1.AddInterface("eth0", simiface.New("eth0"))
	iface1, _ := h1.Interface("eth0")
	iface1.Up()

	h2 := simdevice.NewHost("h2", testLogger())
	h2.AddInterface("eth0", simiface.New("eth0"))
	iface2, _ := h2.Interface("eth0")
	iface2.Up()

	require.NoError(t, sim.Register(h1, h1.IsOnline))
	require.NoError(t, sim.Register(h2, h2.IsOnline))
	require.NoError(t, sim.Connect("h1", "eth0", "h2", "eth0"))

	var received []simnet.FrameReceivedEvent
	sim.Events().SubscribeReceived(func(ev simnet.FrameReceivedEvent) { received = append(received, ev) })

	frame, err := simpdu.NewEthernetFrame(simaddr.BroadcastMAC, iface1.MAC(), simpdu.EtherTypeARP, make([]byte, 28))
	require.NoError(t, err)

	sim.SendFrame("h1", "eth0", frame)

	assert.Len(t, received, 1)
	assert.Equal(t, "h2", received[0].DeviceID)
	assert.Equal(t, uint64(1), sim.Stats().FramesSent)
	assert.Equal(t, uint64(1), sim.Stats().FramesReceived)
}

func TestSimulator_DropsOnDisconnectedPort(t *testing.T) {
	t.Parallel()

	sim := simnet.New(testLogger())

	h1 := simdevice.NewHost("h1", testLogger())
	h1.AddInterface("eth0", simiface.New("eth0"))
	iface1, _ := h1.Interface("eth0")
	iface1.Up()

	require.NoError(t, sim.Register(h1, h1.IsOnline))

	var dropped []simnet.FrameDroppedEvent
	sim.Events().SubscribeDropped(func(ev simnet.FrameDroppedEvent) { dropped = append(dropped, ev) })

	frame, err := simpdu.NewEthernetFrame(simaddr.BroadcastMAC, iface1.MAC(), simpdu.EtherTypeARP, make([]byte, 28))
	require.NoError(t, err)

	sim.SendFrame("h1", "eth0", frame)

	require.Len(t, dropped, 1)
	assert.Equal(t, simnet.DropPortDisconnected, dropped[0].Reason)
}

func TestSimulator_DropsWhenPeerOffline(t *testing.T) {
	t.Parallel()

	sim := simnet.New(testLogger())

	h1 := simdevice.NewHost("h1", testLogger())
	h1.AddInterface("eth0", simiface.New("eth0"))
	iface1, _ := h1.Interface("eth0")
	iface1.Up()

	h2 := simdevice.NewHost("h2", testLogger())
	h2.AddInterface("eth0", simiface.New("eth0"))
	iface2, _ := h2.Interface("eth0")
	iface2.Up()
	h2.PowerOff()

	require.NoError(t, sim.Register(h1, h1.IsOnline))
	require.NoError(t, sim.Register(h2, h2.IsOnline))
	require.NoError(t, sim.Connect("h1", "eth0", "h2", "eth0"))

	var dropped []simnet.FrameDroppedEvent
	sim.Events().SubscribeDropped(func(ev simnet.FrameDroppedEvent) { dropped = append(dropped, ev) })

	frame, err := simpdu.NewEthernetFrame(simaddr.BroadcastMAC, iface1.MAC(), simpdu.EtherTypeARP, make([]byte, 28))
	require.NoError(t, err)

	sim.SendFrame("h1", "eth0", frame)

	require.Len(t, dropped, 1)
	assert.Equal(t, simnet.DropDevicePoweredOff, dropped[0].Reason)

	recent := sim.RecentDrops()
	require.Len(t, recent, 1)
	assert.Equal(t, simnet.DropDevicePoweredOff, recent[0].Reason)
}

func TestSimulator_ConnectRejectsDuplicatePort(t *testing.T) {
	t.Parallel()

	sim := simnet.New(testLogger())

	h1 := simdevice.NewHost("h1", testLogger())
	h1.AddInterface("eth0", simiface.New("eth0"))
	h2 := simdevice.NewHost("h2", testLogger())
	h2.AddInterface("eth0", simiface.New("eth0"))
	h3 := simdevice.NewHost("h3", testLogger())
	h3.AddInterface("eth0", simiface.New("eth0"))

	require.NoError(t, sim.Register(h1, h1.IsOnline))
	require.NoError(t, sim.Register(h2, h2.IsOnline))
	require.NoError(t, sim.Register(h3, h3.IsOnline))
	require.NoError(t, sim.Connect("h1", "eth0", "h2", "eth0"))

	err := sim.Connect("h1", "eth0", "h3", "eth0")
	assert.Error(t, err)
}
