// Package netstack provides the receive-side core of an IPv4 protocol
// layer: header validation, fragment reassembly, per-instance
// acceptance filtering, two-pass demultiplexing to client instances,
// and the aging timer that drives timeouts.
//
// The transmit path, ICMP/IGMP payload semantics, interface
// configuration, routing, and the underlying link service are treated
// as external collaborators; this package (and its children) implement
// only the ingress pipeline.
//
// Package layout:
//   - pkg/netstack/ip: packet buffers, clip info, IPv4 header parsing,
//     cast-type computation, and fragment reassembly.
//   - pkg/netstack/instance: client-session state, acceptance
//     filtering, demultiplexing, and delivery.
//   - pkg/netstack/service: the process-wide service, interface
//     bindings, and the aging timer.
//   - pkg/netstack/icmp, pkg/netstack/igmp: external protocol handlers
//     invoked by dispatch.
//   - pkg/netstack/link: the link-service interface plus a simulated
//     Ethernet/ARP implementation for tests.
//   - pkg/netstack/udp: a small upper-layer payload helper used by
//     tests and demos.
package netstack
