package service

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipcore/pkg/netstack"
	"ipcore/pkg/netstack/instance"
	"ipcore/pkg/netstack/ip"
)

// buildIPv4Fragment builds one fragment of a larger datagram. flags
// carries the MF/DF bits and fragOffset is in 8-byte units, exactly as
// the wire field encodes it.
func buildIPv4Fragment(t *testing.T, id uint16, flags uint8, fragOffset uint16, proto uint8, src, dst net.IP, payload []byte) []byte {
	t.Helper()
	total := ip.HeaderLength + len(payload)
	buf := make([]byte, total)
	buf[0] = 0x45
	binary.BigEndian.PutUint16(buf[2:4], uint16(total))
	binary.BigEndian.PutUint16(buf[4:6], id)
	frag := uint16(flags&0x7)<<13 | (fragOffset & 0x1FFF)
	binary.BigEndian.PutUint16(buf[6:8], frag)
	buf[8] = 64
	buf[9] = proto
	copy(buf[12:16], src.To4())
	copy(buf[16:20], dst.To4())
	copy(buf[20:], payload)
	binary.BigEndian.PutUint16(buf[10:12], checksum(buf[:ip.HeaderLength]))
	return buf
}

// TestServiceAgingExpiresStaleReassemblyEntry drives spec.md §8
// scenario 6 through the real Service: the first fragment of a
// three-fragment datagram arrives, 120 ticks pass without the rest,
// and the entry must be gone — a later arrival of the remaining
// fragments starts a fresh entry that never completes, since the
// fragment carrying offset 0 was lost with the old one.
func TestServiceAgingExpiresStaleReassemblyEntry(t *testing.T) {
	svc, sl, _, mac := newTestService(t)

	ifc := NewInterface("eth0", net.IPv4(10, 0, 0, 2).To4(), net.CIDRMask(24, 32), false)
	svc.AddInterface(ifc)

	inst := svc.NewInstance()
	inst.Configure(instance.Config{
		DefaultProtocol: netstack.ProtocolUDP,
		ReceiveTimeout:  instance.ReceiveTimeout{Duration: 30 * time.Second},
	})
	ifc.Bind(inst)

	tok := instance.NewToken()
	inst.SubmitReceiveToken(tok)

	require.NoError(t, svc.Start())

	src := net.IPv4(10, 0, 0, 3)
	dst := net.IPv4(10, 0, 0, 2)
	peerMAC := net.HardwareAddr{0x02, 0, 0, 0, 0, 2}

	first := buildIPv4Fragment(t, 0x2000, ip.FlagMF, 0, uint8(netstack.ProtocolUDP), src, dst, make([]byte, 8))
	injectIPv4(sl, peerMAC, mac, first)
	require.Equal(t, 1, svc.AssemblyLen())

	for i := 0; i < 120; i++ {
		svc.Tick()
	}
	assert.Equal(t, 0, svc.AssemblyLen(), "stale entry should have aged out after 120 ticks")

	middle := buildIPv4Fragment(t, 0x2000, ip.FlagMF, 1, uint8(netstack.ProtocolUDP), src, dst, make([]byte, 8))
	last := buildIPv4Fragment(t, 0x2000, 0, 2, uint8(netstack.ProtocolUDP), src, dst, make([]byte, 8))
	injectIPv4(sl, peerMAC, mac, middle)
	injectIPv4(sl, peerMAC, mac, last)

	select {
	case <-tok.Wait():
		t.Fatal("the aged-out entry's remaining fragments must not complete a stale datagram")
	default:
	}
	assert.Equal(t, 1, svc.AssemblyLen(), "the late fragments start a fresh entry, missing its head")
}
