package link

import "ipcore/pkg/netstack"

// AcceptFunc is invoked by a Source exactly once per received frame,
// or once with a non-OK status when receive cannot continue.
// linkFlag carries source-specific metadata (e.g. which physical port
// a frame arrived on) opaquely through to the ingress validator's Clip
// Info.
type AcceptFunc func(status netstack.LinkStatus, frame []byte, linkFlag uint32)

// Source is the lower link layer the ingress core treats as an
// external collaborator (spec.md §1). RestartReceive arms the source
// to deliver its next frame (or terminal status) to accept, then
// returns immediately; it never blocks waiting for that frame to
// arrive. The caller must call RestartReceive again after every
// invocation of accept to keep frames flowing — spec.md's
// restart-receive-exactly-once contract, owned by service.Service
// rather than by Source itself (see DESIGN.md).
type Source interface {
	RestartReceive(accept AcceptFunc) error
}
