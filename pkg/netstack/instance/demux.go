package instance

import (
	"ipcore/pkg/netstack"
	"ipcore/pkg/netstack/ip"
)

// InterfaceView is what the Demultiplexer needs from one bound
// interface. The concrete Interface type lives in pkg/netstack/service,
// one layer above this package, and satisfies this interface
// structurally so that instance never has to import service.
type InterfaceView interface {
	Addr() ip.IfaceAddr
	Instances() []*Instance
}

// Demultiplex runs the two-pass fan-out described in spec.md §4.5: pass
// one clones the datagram into every accepting instance's received
// list across every configured interface; pass two drives delivery for
// every instance that was touched. It releases the caller's reference
// to buf before returning.
func Demultiplex(ifaces []InterfaceView, hdr *ip.Header, buf *ip.Buffer) error {
	global := buf.Clip.CastType
	effProto, icmpErr, _ := EffectiveProtocol(hdr, buf)

	accepted := 0
	seen := make(map[*Instance]struct{})
	var touched []*Instance

	for _, ifc := range ifaces {
		local := ip.ComputeLocalCastType(hdr.DstIP, hdr.SrcIP, ifc.Addr(), global)
		if local == netstack.CastNone {
			continue
		}
		for _, inst := range ifc.Instances() {
			if err := Accept(inst, hdr, local, effProto, icmpErr); err != nil {
				continue
			}
			clone := buf.Clone()
			clone.Clip.CastType = local
			inst.enqueueReceived(clone)
			accepted++
			if _, ok := seen[inst]; !ok {
				seen[inst] = struct{}{}
				touched = append(touched, inst)
			}
		}
	}

	buf.Release()

	for _, inst := range touched {
		Deliver(inst)
	}

	if accepted == 0 {
		return netstack.ErrNotFound
	}
	return nil
}
