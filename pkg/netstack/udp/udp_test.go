package udp_test

import (
	network "net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipcore/pkg/netstack/udp"
)

func TestParseHeader(t *testing.T) {
	data := []byte{
		0x1a, 0x2b, // Src port 6699 (0x1a2b)
		0x00, 0x35, // Dst port 53
		0x00, 0x10, // Length 16
		0x00, 0x00, // Checksum
	}

	h, err := udp.ParseHeader(data)
	require.NoError(t, err)
	assert.EqualValues(t, 6699, h.SrcPort)
	assert.EqualValues(t, 53, h.DstPort)
	assert.EqualValues(t, 16, h.Length)
}

func TestSerializeHeader(t *testing.T) {
	h := &udp.Header{
		SrcPort:  12345,
		DstPort:  53,
		Length:   20,
		Checksum: 0,
	}

	serialized := h.Serialize()
	require.Len(t, serialized, 8)

	parsed, err := udp.ParseHeader(serialized)
	require.NoError(t, err)
	assert.Equal(t, h.SrcPort, parsed.SrcPort)
	assert.Equal(t, h.Length, parsed.Length)
}

func TestParseDatagram(t *testing.T) {
	header := []byte{
		0x1a, 0x2b, // Src port 6699
		0x00, 0x35, // Dst port 53
		0x00, 0x0d, // Length 13 (8 header + 5 data)
		0x00, 0x00, // Checksum
	}
	payload := []byte("hello")

	srcIP := network.IP{192, 168, 1, 100}
	dstIP := network.IP{192, 168, 1, 1}

	dg, err := udp.ParseDatagram(append(header, payload...), srcIP, dstIP)
	require.NoError(t, err)
	assert.EqualValues(t, 6699, dg.Header.SrcPort)
	assert.Equal(t, payload, dg.Payload)
}

func TestNewDatagram(t *testing.T) {
	srcIP := network.IP{192, 168, 1, 100}
	dstIP := network.IP{192, 168, 1, 1}
	payload := []byte("test payload")

	dg := udp.NewDatagram(12345, 53, srcIP, dstIP, payload)

	assert.EqualValues(t, 12345, dg.Header.SrcPort)
	assert.EqualValues(t, 53, dg.Header.DstPort)
	assert.EqualValues(t, 8+len(payload), dg.Header.Length)
}

func TestSerializeDatagramUpdatesLengthAndChecksum(t *testing.T) {
	srcIP := network.IP{192, 168, 1, 100}
	dstIP := network.IP{192, 168, 1, 1}
	payload := []byte("hello")

	dg := udp.NewDatagram(12345, 53, srcIP, dstIP, payload)
	wire := dg.Serialize()

	require.Len(t, wire, 8+len(payload))
	assert.EqualValues(t, 8+len(payload), dg.Header.Length)
	assert.EqualValues(t, 0x07DE, dg.Header.Checksum)
}
