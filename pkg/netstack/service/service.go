package service

import (
	"net"
	"sync"

	"ipcore/internal/obslog"
	"ipcore/pkg/netstack"
	"ipcore/pkg/netstack/icmp"
	"ipcore/pkg/netstack/igmp"
	"ipcore/pkg/netstack/instance"
	"ipcore/pkg/netstack/ip"
	"ipcore/pkg/netstack/link"
)

// State is the service's own lifecycle state, distinct from any one
// instance's (spec.md §9's restart-receive-exactly-once decision:
// see DESIGN.md).
type State uint8

const (
	StateRunning State = iota
	StateDestroying
)

// Transmitter is the narrow hook the ICMP subsystem's reply path uses
// to answer an echo request. The transmit path itself — building and
// addressing an outbound frame — is out of scope (spec.md §1); a real
// deployment supplies a Transmitter, tests may leave it nil and treat
// replies as a no-op.
type Transmitter interface {
	Transmit(dst net.IP, protocol netstack.Protocol, payload []byte) error
}

// Service is the running IPv4 ingress core: the assembly table, the
// bound interfaces and their instances, and the link source driving
// frames in. It is the only package in this module that imports ip,
// icmp, igmp, instance, and link together (DESIGN.md).
type Service struct {
	mu    sync.Mutex
	state State

	assembly *ip.Table

	interfaces []*Interface
	instances  map[uint64]*instance.Instance
	nextID     uint64

	arp     *link.ARPTable
	src     link.Source
	tx      Transmitter
	tracker igmp.GroupTracker

	log obslog.Logger
}

// New constructs a Service bound to src, the link source it drives
// with RestartReceive, and arp, consulted (and updated from observed
// ARP traffic) for any outbound resolution a Transmitter needs.
func New(src link.Source, arp *link.ARPTable, log obslog.Logger) *Service {
	return &Service{
		assembly:  ip.NewTable(),
		instances: make(map[uint64]*instance.Instance),
		arp:       arp,
		src:       src,
		log:       log,
	}
}

// SetTransmitter installs the outbound hook ICMP echo replies use.
func (s *Service) SetTransmitter(tx Transmitter) { s.tx = tx }

// SetGroupTracker installs the IGMP membership callback.
func (s *Service) SetGroupTracker(tracker igmp.GroupTracker) { s.tracker = tracker }

// AddInterface registers ifc for demultiplexing.
func (s *Service) AddInterface(ifc *Interface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interfaces = append(s.interfaces, ifc)
}

// NewInstance allocates and registers a fresh, unconfigured instance.
func (s *Service) NewInstance() *instance.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	inst := instance.New(s.nextID)
	s.instances[inst.ID] = inst
	return inst
}

// State reports whether the service is still accepting frames.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AssemblyLen reports the number of in-flight reassembly entries, for
// tests and diagnostics.
func (s *Service) AssemblyLen() int {
	return s.assembly.Len()
}

// Start arms the link source to begin delivering frames.
func (s *Service) Start() error {
	return s.src.RestartReceive(s.onFrame)
}

// Stop marks the service as destroying; the in-flight onFrame call (if
// any) will not restart the link source again once it returns.
func (s *Service) Stop() {
	s.mu.Lock()
	s.state = StateDestroying
	s.mu.Unlock()
}

func (s *Service) ifaceAddrs() []ip.IfaceAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ip.IfaceAddr, len(s.interfaces))
	for i, ifc := range s.interfaces {
		out[i] = ifc.Addr()
	}
	return out
}

func (s *Service) interfaceViews() []instance.InterfaceView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]instance.InterfaceView, len(s.interfaces))
	for i, ifc := range s.interfaces {
		out[i] = ifc
	}
	return out
}

// onFrame is the link.AcceptFunc this service hands to RestartReceive.
// It restarts the receive exactly once per call, regardless of how
// Ingress below concludes, unless the service is tearing down
// (spec.md §9, see DESIGN.md's restart-receive-exactly-once entry).
func (s *Service) onFrame(status netstack.LinkStatus, frame []byte, linkFlag uint32) {
	defer func() {
		if s.State() != StateDestroying {
			if err := s.src.RestartReceive(s.onFrame); err != nil {
				s.log.WithError(err).Error("failed to restart receive")
			}
		}
	}()

	if status != netstack.LinkStatusOK {
		s.log.Warnf("link reported non-OK status %d, not receiving", status)
		return
	}

	if err := s.ingressFrame(frame, linkFlag); err != nil {
		s.log.WithError(err).Debug("frame dropped at ingress")
	}
}

func (s *Service) ingressFrame(raw []byte, linkFlag uint32) error {
	eth, err := link.ParseFrame(raw)
	if err != nil {
		return err
	}

	switch eth.EtherType {
	case netstack.EtherTypeARP:
		return s.handleARP(eth.Payload)
	case netstack.EtherTypeIPv4:
		// fall through
	default:
		return nil
	}

	buf := ip.NewBuffer(eth.Payload)
	buf.Clip = ip.NewClipInfo(0, buf.Len(), netstack.CastNone, linkFlag)

	cfg := &ip.Config{
		Interfaces: s.ifaceAddrs(),
		Assembly:   s.assembly,
		Dispatch:   s.dispatch,
	}
	return ip.Ingress(cfg, buf)
}

func (s *Service) handleARP(payload []byte) error {
	pkt, err := link.ParseARPPacket(payload)
	if err != nil {
		return err
	}
	s.arp.Set(pkt.SenderIP, pkt.SenderMAC)
	return nil
}

// dispatch implements spec.md §4.7: ICMP and IGMP go to their own
// handlers, everything else to the Demultiplexer. An ICMP error
// message still needs to reach the instance it describes, so its
// forwarded buffer is run back through the Demultiplexer with the
// original header.
func (s *Service) dispatch(buf *ip.Buffer, global netstack.CastType) error {
	hdr := buf.Header

	switch hdr.Protocol {
	case netstack.ProtocolICMP:
		forward, err := icmp.Handle(hdr, buf, s.replyTo(hdr))
		if err != nil {
			return err
		}
		if forward == nil {
			return nil
		}
		return instance.Demultiplex(s.interfaceViews(), hdr, forward)
	case netstack.ProtocolIGMP:
		return igmp.Handle(buf, s.tracker)
	default:
		return instance.Demultiplex(s.interfaceViews(), hdr, buf)
	}
}

// replyTo builds the reply hook icmp.Handle uses to answer an echo
// request addressed to reqHdr's destination, from reqHdr's source.
func (s *Service) replyTo(reqHdr *ip.Header) func(*icmp.Message) error {
	return func(msg *icmp.Message) error {
		if s.tx == nil {
			return nil
		}
		return s.tx.Transmit(reqHdr.SrcIP, netstack.ProtocolICMP, msg.Serialize())
	}
}
