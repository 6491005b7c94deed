package ip

import "ipcore/pkg/netstack"

// ClipInfo is the per-packet control block attached to every buffer
// the core handles (spec.md §3).
type ClipInfo struct {
	Start    int // byte offset of this fragment within its parent datagram
	Length   int
	End      int // Start + Length
	CastType netstack.CastType
	LinkFlag uint32 // opaque pass-through from the link layer
	Life     int    // ticks remaining; zero means "never expire"
	Status   error  // the per-delivery result
}

// NewClipInfo builds a Clip Info for a just-validated fragment or
// whole datagram.
func NewClipInfo(start, length int, cast netstack.CastType, linkFlag uint32) *ClipInfo {
	return &ClipInfo{
		Start:    start,
		Length:   length,
		End:      start + length,
		CastType: cast,
		LinkFlag: linkFlag,
	}
}
