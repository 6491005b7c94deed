package instance

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipcore/pkg/netstack"
	"ipcore/pkg/netstack/icmp"
	"ipcore/pkg/netstack/ip"
)

func TestAcceptRejectsUnconfigured(t *testing.T) {
	inst := New(1)
	err := Accept(inst, &ip.Header{}, netstack.CastUnicastLocal, netstack.ProtocolUDP, false)
	assert.Equal(t, netstack.ErrNotStarted, err)
}

func TestAcceptRejectsReceiveDisabled(t *testing.T) {
	inst := New(1)
	inst.Configure(Config{ReceiveTimeout: ReceiveTimeout{Disabled: true}, DefaultProtocol: netstack.ProtocolUDP})
	err := Accept(inst, &ip.Header{}, netstack.CastUnicastLocal, netstack.ProtocolUDP, false)
	assert.Equal(t, netstack.ErrInvalidParameter, err)
}

func TestAcceptPromiscuousTakesEverything(t *testing.T) {
	inst := New(1)
	inst.Configure(Config{
		AcceptPromiscuous: true,
		DefaultProtocol:   netstack.ProtocolTCP,
		ReceiveTimeout:    ReceiveTimeout{Duration: time.Second},
	})
	err := Accept(inst, &ip.Header{}, netstack.CastUnicastLocal, netstack.ProtocolUDP, false)
	assert.NoError(t, err)
}

func TestAcceptBroadcastRequiresOptIn(t *testing.T) {
	inst := New(1)
	inst.Configure(Config{
		DefaultProtocol: netstack.ProtocolUDP,
		ReceiveTimeout:  ReceiveTimeout{Duration: time.Second},
	})
	err := Accept(inst, &ip.Header{}, netstack.CastLocalBroadcast, netstack.ProtocolUDP, false)
	assert.Equal(t, netstack.ErrInvalidParameter, err)

	inst.Config.AcceptBroadcast = true
	err = Accept(inst, &ip.Header{}, netstack.CastLocalBroadcast, netstack.ProtocolUDP, false)
	assert.NoError(t, err)
}

func TestAcceptMulticastRequiresGroupMembership(t *testing.T) {
	inst := New(1)
	inst.Configure(Config{
		DefaultProtocol: netstack.ProtocolUDP,
		ReceiveTimeout:  ReceiveTimeout{Duration: time.Second},
		StationAddress:  net.IPv4(10, 0, 0, 5).To4(),
		GroupList:       []net.IP{net.IPv4(224, 0, 0, 9).To4()},
	})
	hdr := &ip.Header{DstIP: net.IPv4(224, 0, 0, 1).To4()}
	assert.Equal(t, netstack.ErrInvalidParameter, Accept(inst, hdr, netstack.CastMulticast, netstack.ProtocolUDP, false))

	hdr.DstIP = net.IPv4(224, 0, 0, 9).To4()
	assert.NoError(t, Accept(inst, hdr, netstack.CastMulticast, netstack.ProtocolUDP, false))
}

func TestAcceptICMPErrorRequiresOptIn(t *testing.T) {
	inst := New(1)
	inst.Configure(Config{
		DefaultProtocol: netstack.ProtocolUDP,
		ReceiveTimeout:  ReceiveTimeout{Duration: time.Second},
	})
	err := Accept(inst, &ip.Header{}, netstack.CastUnicastLocal, netstack.ProtocolUDP, true)
	assert.Equal(t, netstack.ErrInvalidParameter, err)

	inst.Config.AcceptICMPErrors = true
	err = Accept(inst, &ip.Header{}, netstack.CastUnicastLocal, netstack.ProtocolUDP, true)
	assert.NoError(t, err)
}

func TestEffectiveProtocolUnwrapsICMPError(t *testing.T) {
	embeddedHdr := &ip.Header{Version: 4, IHL: 5, Length: ip.HeaderLength, Protocol: netstack.ProtocolUDP}
	icmpMsg := icmp.NewDestUnreach(icmp.CodePortUnreach, embeddedHdr.Serialize())
	payload := icmpMsg.Serialize()

	outerHdr := &ip.Header{Protocol: netstack.ProtocolICMP}
	buf := ip.NewBuffer(payload)

	proto, isErr, err := EffectiveProtocol(outerHdr, buf)
	require.NoError(t, err)
	assert.True(t, isErr)
	assert.Equal(t, netstack.ProtocolUDP, proto)
}

func TestEffectiveProtocolPassesThroughNonICMP(t *testing.T) {
	hdr := &ip.Header{Protocol: netstack.ProtocolUDP}
	buf := ip.NewBuffer([]byte("payload"))
	proto, isErr, err := EffectiveProtocol(hdr, buf)
	require.NoError(t, err)
	assert.False(t, isErr)
	assert.Equal(t, netstack.ProtocolUDP, proto)
}
