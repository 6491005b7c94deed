// Package service is the orchestration root that wires the leaf
// packages (ip, icmp, igmp, instance, link) together into one running
// IPv4 ingress core. It is deliberately the only package in this
// module that imports all of them, so every other package's
// dependency graph stays a leaf or near-leaf (spec.md §5, DESIGN.md).
package service

import (
	"net"
	"sync"

	"ipcore/pkg/netstack/instance"
	"ipcore/pkg/netstack/ip"
)

// Interface is one configured network interface: its address and the
// instances bound to it. It satisfies instance.InterfaceView
// structurally, so the instance package never imports this one.
type Interface struct {
	mu sync.Mutex

	addr ip.IfaceAddr

	name      string
	instances []*instance.Instance
}

// NewInterface registers a new interface with the given address.
func NewInterface(name string, addr net.IP, mask net.IPMask, promiscuous bool) *Interface {
	return &Interface{
		name: name,
		addr: ip.IfaceAddr{IP: addr, Mask: mask, Promiscuous: promiscuous},
	}
}

// Name returns the interface's configured name (e.g. "eth0").
func (ifc *Interface) Name() string { return ifc.name }

// Addr returns the interface's addressing view, satisfying
// instance.InterfaceView.
func (ifc *Interface) Addr() ip.IfaceAddr {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	return ifc.addr
}

// SetAddr updates the interface's bound address, e.g. after DHCP
// renumbering. Interface/address management itself is out of scope
// (spec.md §1 Non-goals); this setter exists only so the service layer
// has somewhere to apply configuration it does load.
func (ifc *Interface) SetAddr(addr net.IP, mask net.IPMask) {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	ifc.addr.IP = addr
	ifc.addr.Mask = mask
}

// Instances returns the instances bound to this interface, satisfying
// instance.InterfaceView.
func (ifc *Interface) Instances() []*instance.Instance {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	out := make([]*instance.Instance, len(ifc.instances))
	copy(out, ifc.instances)
	return out
}

// Bind attaches inst to this interface.
func (ifc *Interface) Bind(inst *instance.Instance) {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	ifc.instances = append(ifc.instances, inst)
}
