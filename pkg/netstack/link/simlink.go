package link

import (
	"net"
	"sync"

	"ipcore/pkg/netstack"
)

// SimLink is an in-memory simulated Ethernet segment: frames Injected
// into it are queued and handed back out through RestartReceive in FIFO
// order, with ARP resolution against a shared ARPTable. It exists for
// unit tests and the end-to-end acceptance scenarios (spec.md §8) that
// need a Source without real hardware or a packet-capture device.
type SimLink struct {
	mu      sync.Mutex
	mac     net.HardwareAddr
	queue   [][]byte
	pending AcceptFunc
	arp     *ARPTable
	down    bool
}

// NewSimLink returns a SimLink with the given local MAC address,
// backed by arp for next-hop resolution.
func NewSimLink(mac net.HardwareAddr, arp *ARPTable) *SimLink {
	return &SimLink{mac: mac, arp: arp}
}

// RestartReceive arms the link to deliver its next queued frame to
// accept. If a frame is already queued it is delivered synchronously
// before RestartReceive returns; otherwise accept is invoked the next
// time Inject or SendIPv4 queues a frame.
func (s *SimLink) RestartReceive(accept AcceptFunc) error {
	s.mu.Lock()

	if s.down {
		s.mu.Unlock()
		accept(netstack.LinkStatusDown, nil, 0)
		return nil
	}
	if len(s.queue) > 0 {
		frame := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		accept(netstack.LinkStatusOK, frame, 0)
		return nil
	}
	s.pending = accept
	s.mu.Unlock()
	return nil
}

// Inject delivers a raw frame to the link as though it had arrived
// over the wire. If a RestartReceive call is outstanding it is
// satisfied immediately; otherwise the frame is queued.
func (s *SimLink) Inject(frame []byte) {
	s.mu.Lock()
	accept := s.pending
	s.pending = nil
	if accept == nil {
		s.queue = append(s.queue, frame)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	accept(netstack.LinkStatusOK, frame, 0)
}

// SendIPv4 wraps payload in an Ethernet II frame from the MAC the ARP
// table holds for dst to this link's own MAC, and injects it to the
// link, as a peer at dst transmitting to this host would.
func (s *SimLink) SendIPv4(dst net.IP, payload []byte) error {
	mac, ok := s.arp.Lookup(dst)
	if !ok {
		return netstack.ErrNotFound
	}
	frame := &Frame{
		DstMAC:    s.mac,
		SrcMAC:    mac,
		EtherType: netstack.EtherTypeIPv4,
		Payload:   payload,
	}
	s.Inject(frame.Serialize())
	return nil
}

// Down marks the link as failed; the next RestartReceive call (or the
// call currently pending) reports LinkStatusDown.
func (s *SimLink) Down() {
	s.mu.Lock()
	accept := s.pending
	s.pending = nil
	s.down = true
	s.mu.Unlock()
	if accept != nil {
		accept(netstack.LinkStatusDown, nil, 0)
	}
}
