package link

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipcore/pkg/netstack"
)

func TestNewARPRequest(t *testing.T) {
	senderMAC := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	senderIP := net.ParseIP("192.168.1.100")
	targetIP := net.ParseIP("192.168.1.1")

	packet := NewARPRequest(senderMAC, senderIP, targetIP)

	assert.EqualValues(t, 1, packet.HardwareType)
	assert.Equal(t, uint16(netstack.EtherTypeIPv4), packet.ProtocolType)
	assert.Equal(t, ARPOperationRequest, packet.Operation)
	assert.Equal(t, senderMAC.String(), packet.SenderMAC.String())
}

func TestARPPacketSerialization(t *testing.T) {
	senderMAC := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	senderIP := net.ParseIP("192.168.1.100")
	targetIP := net.ParseIP("192.168.1.1")

	packet := NewARPRequest(senderMAC, senderIP, targetIP)
	serialized := packet.Serialize()
	require.Len(t, serialized, ARPPacketSize)

	parsed, err := ParseARPPacket(serialized)
	require.NoError(t, err)
	assert.Equal(t, packet.Operation, parsed.Operation)
	assert.Equal(t, packet.SenderMAC.String(), parsed.SenderMAC.String())
}

func TestARPTable(t *testing.T) {
	table := NewARPTable()

	addr := net.ParseIP("192.168.1.100")
	mac := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

	table.Set(addr, mac)

	result, ok := table.Lookup(addr)
	require.True(t, ok)
	assert.Equal(t, mac.String(), result.String())

	_, ok = table.Lookup(net.ParseIP("192.168.1.200"))
	assert.False(t, ok)
}
