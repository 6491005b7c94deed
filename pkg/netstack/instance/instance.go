// Package instance implements the IP Instance: an upper-layer client
// session bound to one or more interfaces, its acceptance filter, the
// two-pass demultiplexer, and delivery to client-supplied receive
// tokens.
package instance

import (
	"net"
	"sync"
	"time"

	"ipcore/pkg/netstack"
	"ipcore/pkg/netstack/ip"
)

// tickInterval is the aging timer's cadence; receive-timeout durations
// are expressed in ticks of this length (spec.md §9: "120-tick
// fragment life ... pick one and document" — this core runs its timer
// at 1 Hz).
const tickInterval = time.Second

// State is an instance's lifecycle state.
type State uint8

const (
	StateUnconfigured State = iota
	StateConfigured
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ReceiveTimeout is the sum-type replacement for the all-ones
// "receive disabled" sentinel the original configuration used
// (spec.md §9).
type ReceiveTimeout struct {
	Disabled bool
	Duration time.Duration
}

func ticksFromReceiveTimeout(rt ReceiveTimeout) int {
	if rt.Disabled {
		return 0
	}
	ticks := int(rt.Duration / tickInterval)
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

// Config holds one instance's registration options (spec.md §6).
type Config struct {
	AcceptAnyProtocol bool
	DefaultProtocol   netstack.Protocol
	AcceptICMPErrors  bool
	AcceptBroadcast   bool
	AcceptPromiscuous bool
	UseDefaultAddress bool
	StationAddress    net.IP
	SubnetMask        net.IPMask
	ReceiveTimeout    ReceiveTimeout
	TypeOfService     uint8
	TimeToLive        uint8
	GroupList         []net.IP
}

// QueuedDatagram is one entry on an instance's received list: a cloned
// buffer waiting for a matching receive token, aging independently of
// the buffer's other clones.
type QueuedDatagram struct {
	Buf  *ip.Buffer
	Life int
}

// Token is the client-supplied receive token the core fills in and
// signals exactly once (spec.md §6). The upper layer must call Wait
// (or select on it) to learn when Status and Packet are valid, then
// must call Packet.Recycle exactly once.
type Token struct {
	Status error
	Packet *Wrapper
	done   chan struct{}
}

// NewToken allocates a fresh, unsignaled receive token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Wait returns a channel that closes once the token has been
// populated and signaled.
func (t *Token) Wait() <-chan struct{} { return t.done }

func (t *Token) signal() { close(t.done) }

// Instance is one client session: configuration, lifecycle state, and
// the three queues described in spec.md §3. Only the delivered list is
// mutex-guarded — everything else is touched exclusively from the
// single cooperative execution context the ingress pipeline and aging
// timer share (spec.md §5).
type Instance struct {
	ID     uint64
	Config Config

	state State

	received []*QueuedDatagram
	rxTokens []*Token

	deliveredMu sync.Mutex
	delivered   []*Wrapper
}

// New constructs an unconfigured instance. Call Configure to make it
// eligible for delivery.
func New(id uint64) *Instance {
	return &Instance{ID: id, state: StateUnconfigured}
}

// State reports the instance's current lifecycle state.
func (i *Instance) State() State { return i.state }

// Configure installs cfg and transitions the instance to configured.
func (i *Instance) Configure(cfg Config) {
	i.Config = cfg
	i.state = StateConfigured
}

// Stop transitions the instance to stopping; the Acceptance Filter
// rejects it from that point on.
func (i *Instance) Stop() { i.state = StateStopping }

// SubmitReceiveToken enqueues a client-supplied token for the next
// delivery pass to consume (FIFO, spec.md §4.6).
func (i *Instance) SubmitReceiveToken(tok *Token) {
	i.rxTokens = append(i.rxTokens, tok)
}

// enqueueReceived appends a cloned, accepted datagram to the received
// list with its life seeded from the instance's receive-timeout.
func (i *Instance) enqueueReceived(buf *ip.Buffer) {
	i.received = append(i.received, &QueuedDatagram{
		Buf:  buf,
		Life: ticksFromReceiveTimeout(i.Config.ReceiveTimeout),
	})
}

// Age decrements the life of every queued received datagram and
// releases any that expire, per spec.md §4.8. A datagram enqueued with
// Life == 0 (receive timeout disabled) never expires and is left
// untouched.
func (i *Instance) Age() {
	kept := i.received[:0]
	for _, qd := range i.received {
		if qd.Life == 0 {
			kept = append(kept, qd)
			continue
		}
		qd.Life--
		if qd.Life <= 0 {
			qd.Buf.Release()
			continue
		}
		kept = append(kept, qd)
	}
	i.received = kept
}

// Delivered returns a snapshot of the wrappers currently in the
// client's hands, for diagnostics and tests.
func (i *Instance) Delivered() []*Wrapper {
	i.deliveredMu.Lock()
	defer i.deliveredMu.Unlock()
	out := make([]*Wrapper, len(i.delivered))
	copy(out, i.delivered)
	return out
}

// ReceivedLen reports how many datagrams are queued awaiting a
// receive token, for diagnostics and tests.
func (i *Instance) ReceivedLen() int { return len(i.received) }

// PendingTokens reports how many receive tokens are queued awaiting a
// datagram, for diagnostics and tests.
func (i *Instance) PendingTokens() int { return len(i.rxTokens) }
