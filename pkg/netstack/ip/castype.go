package ip

import (
	"net"

	"ipcore/pkg/netstack"
)

// IfaceAddr is the minimal interface-addressing view the ip package
// needs to compute cast types: the full Interface type (with its list
// of bound instances) lives in pkg/netstack/service, one layer up, to
// keep this package free of that dependency.
type IfaceAddr struct {
	IP          net.IP
	Mask        net.IPMask
	Promiscuous bool
}

var limitedBroadcast = net.IPv4(255, 255, 255, 255).To4()

func isMulticastAddr(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	return ip4[0]&0xF0 == 0xE0
}

func directedBroadcast(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	if ip4 == nil || len(mask) != 4 {
		return nil
	}
	out := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		out[i] = ip4[i] | ^mask[i]
	}
	return out
}

// ComputeGlobalCastType computes the cast type of (dst, src) against
// the receiver's full address tables — every bound interface — per
// spec.md §4.2. A source address that is itself a broadcast or
// multicast in the receiver's own scope renders the packet CastNone.
func ComputeGlobalCastType(dst, src net.IP, ifaces []IfaceAddr) netstack.CastType {
	if src.Equal(limitedBroadcast) || isMulticastAddr(src) {
		return netstack.CastNone
	}
	for _, ifc := range ifaces {
		if ifc.IP == nil || ifc.IP.IsUnspecified() {
			continue
		}
		if bc := directedBroadcast(ifc.IP, ifc.Mask); bc != nil && src.Equal(bc) {
			return netstack.CastNone
		}
	}

	if dst.Equal(limitedBroadcast) {
		return netstack.CastLocalBroadcast
	}
	for _, ifc := range ifaces {
		if ifc.IP != nil && !ifc.IP.IsUnspecified() && dst.Equal(ifc.IP) {
			return netstack.CastUnicastLocal
		}
	}
	for _, ifc := range ifaces {
		if ifc.IP == nil || ifc.IP.IsUnspecified() {
			continue
		}
		if bc := directedBroadcast(ifc.IP, ifc.Mask); bc != nil && dst.Equal(bc) {
			return netstack.CastSubnetBroadcast
		}
	}
	if isMulticastAddr(dst) {
		return netstack.CastMulticast
	}
	for _, ifc := range ifaces {
		if ifc.Promiscuous {
			return netstack.CastPromiscuous
		}
	}
	return netstack.CastNone
}

// ComputeLocalCastType computes the interface-local cast type used by
// the Demultiplexer's per-interface pass (spec.md §4.5). Broadcast and
// multicast datagrams inherit their global cast type unchanged.
func ComputeLocalCastType(dst, src net.IP, ifc IfaceAddr, global netstack.CastType) netstack.CastType {
	if global == netstack.CastLocalBroadcast || global == netstack.CastSubnetBroadcast || global == netstack.CastMulticast {
		return global
	}
	if ifc.IP == nil || ifc.IP.IsUnspecified() {
		return netstack.CastUnicastLocal
	}
	local := ComputeGlobalCastType(dst, src, []IfaceAddr{ifc})
	if local == netstack.CastNone && ifc.Promiscuous {
		return netstack.CastPromiscuous
	}
	return local
}
