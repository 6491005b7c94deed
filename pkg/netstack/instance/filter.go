package instance

import (
	"ipcore/pkg/netstack"
	"ipcore/pkg/netstack/icmp"
	"ipcore/pkg/netstack/ip"
)

// Accept implements the Per-Instance Acceptance Filter (spec.md §4.4):
// for one (instance, header, local cast type) triple, decides whether
// the instance wants the datagram.
func Accept(inst *Instance, hdr *ip.Header, localCast netstack.CastType, effectiveProtocol netstack.Protocol, isICMPError bool) error {
	if inst.State() != StateConfigured {
		return netstack.ErrNotStarted
	}
	if inst.Config.ReceiveTimeout.Disabled {
		return netstack.ErrInvalidParameter
	}
	if inst.Config.AcceptPromiscuous {
		return nil
	}
	if isICMPError && !inst.Config.AcceptICMPErrors {
		return netstack.ErrInvalidParameter
	}
	if !inst.Config.AcceptAnyProtocol && effectiveProtocol != inst.Config.DefaultProtocol {
		return netstack.ErrInvalidParameter
	}
	if localCast.IsBroadcast() {
		if !inst.Config.AcceptBroadcast {
			return netstack.ErrInvalidParameter
		}
		return nil
	}
	if localCast == netstack.CastMulticast {
		if inst.Config.StationAddress == nil || inst.Config.StationAddress.IsUnspecified() {
			return nil
		}
		for _, g := range inst.Config.GroupList {
			if g.Equal(hdr.DstIP) {
				return nil
			}
		}
		return netstack.ErrInvalidParameter
	}
	return nil
}

// EffectiveProtocol determines the protocol the Acceptance Filter
// should match against. For an ICMP error message it's the protocol
// field of the IP header embedded in the ICMP payload, so a client
// registered for (say) UDP sees the UDP-related ICMP errors that
// reference its own traffic; for everything else it's simply the
// datagram's own protocol.
func EffectiveProtocol(hdr *ip.Header, buf *ip.Buffer) (proto netstack.Protocol, isICMPError bool, err error) {
	if hdr.Protocol != netstack.ProtocolICMP {
		return hdr.Protocol, false, nil
	}
	payload := flatten(buf)
	icmpHdr, err := icmp.ParseHeader(payload)
	if err != nil {
		return hdr.Protocol, false, err
	}
	if icmpHdr.Class() != icmp.ClassError {
		return hdr.Protocol, false, nil
	}
	if len(payload) <= 8 {
		return hdr.Protocol, true, nil
	}
	embedded, err := ip.ParseHeader(payload[8:])
	if err != nil {
		return hdr.Protocol, true, nil
	}
	return embedded.Protocol, true, nil
}

func flatten(buf *ip.Buffer) []byte {
	blocks := buf.FragmentTable()
	if len(blocks) == 1 {
		return blocks[0].Data
	}
	out := make([]byte, 0, buf.Len())
	for _, b := range blocks {
		out = append(out, b.Data...)
	}
	return out
}
