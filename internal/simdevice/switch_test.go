package simdevice_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simdevice"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simpdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() (l *slog.Logger) { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSwitch_LearnAndUnicast(t *testing.T) {
	t.Parallel()

	sw := simdevice.NewSwitch("sw0", testLogger())

	var p1Out, p2Out, p3Out []*simpdu.EthernetFrame

	p1 := simiface.New("p1")
	p1.Up()
	p1.SetOnTransmit(func(f *simpdu.EthernetFrame) { p1Out = append(p1Out, f) })

	p2 := simiface.New("p2")
	p2.Up()
	p2.SetOnTransmit(func(f *simpdu.EthernetFrame) { p2Out = append(p2Out, f) })

	p3 := simiface.New("p3")
	p3.Up()
	p3.SetOnTransmit(func(f *simpdu.EthernetFrame) { p3Out = append(p3Out, f) })

	sw.AddPort("p1", p1)
	sw.AddPort("p2", p2)
	sw.AddPort("p3", p3)

	mac1, err := simaddr.ParseMACAddress("02:00:00:00:00:01")
	require.NoError(t, err)
	mac2, err := simaddr.ParseMACAddress("02:00:00:00:00:02")
	require.NoError(t, err)

	frame, err := simpdu.NewEthernetFrame(simaddr.BroadcastMAC, mac1, simpdu.EtherTypeARP, make([]byte, 28))
	require.NoError(t, err)

	sw.Receive("p1", frame)
	assert.Empty(t, p1Out)
	assert.Len(t, p2Out, 1)
	assert.Len(t, p3Out, 1)

	table := sw.MACTable()
	assert.Equal(t, "p1", table[mac1])

	unicast, err := simpdu.NewEthernetFrame(mac1, mac2, simpdu.EtherTypeARP, make([]byte, 28))
	require.NoError(t, err)

	p2Out, p3Out = nil, nil
	sw.Receive("p2", unicast)
	assert.Len(t, p1Out, 1)
	assert.Empty(t, p2Out)
	assert.Empty(t, p3Out)
}

func TestHub_AlwaysFloods(t *testing.T) {
	t.Parallel()

	hub := simdevice.NewHub("hub0", testLogger())

	var p2Out []*simpdu.EthernetFrame

	p1 := simiface.New("p1")
	p1.Up()

	p2 := simiface.New("p2")
	p2.Up()
	p2.SetOnTransmit(func(f *simpdu.EthernetFrame) { p2Out = append(p2Out, f) })

	hub.AddPort("p1", p1)
	hub.AddPort("p2", p2)

	mac1, err := simaddr.ParseMACAddress("02:00:00:00:00:01")
	require.NoError(t, err)
	mac2, err := simaddr.ParseMACAddress("02:00:00:00:00:02")
	require.NoError(t, err)

	frame, err := simpdu.NewEthernetFrame(mac2, mac1, simpdu.EtherTypeARP, make([]byte, 28))
	require.NoError(t, err)

	hub.Receive("p1", frame)
	hub.Receive("p1", frame)

	assert.Empty(t, hub.MACTable())
	assert.Len(t, p2Out, 2)
}
