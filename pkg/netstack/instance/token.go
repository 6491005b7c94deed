package instance

import (
	"sync"

	"ipcore/pkg/netstack/ip"
)

// Wrapper is the descriptor handed to the upper layer (spec.md §4.6):
// a network-byte-order header view, the option area, the datagram's
// logical length, and a fragment table describing its physical
// storage without requiring it to be contiguous. The wrapper owns the
// underlying buffer until Recycle runs.
type Wrapper struct {
	HeaderBytes   []byte
	Options       []byte
	DataLen       int
	FragmentTable []ip.Block

	once sync.Once
	inst *Instance
	buf  *ip.Buffer
}

func wrap(inst *Instance, buf *ip.Buffer) *Wrapper {
	return &Wrapper{
		HeaderBytes:   buf.Header.Serialize(),
		Options:       buf.Header.Options,
		DataLen:       buf.Len(),
		FragmentTable: buf.FragmentTable(),
		inst:          inst,
		buf:           buf,
	}
}

// Recycle is the single-shot event the upper layer MUST signal exactly
// once per wrapper. It removes the wrapper from the instance's
// delivered list and releases the underlying buffer. Calling it more
// than once is a no-op.
func (w *Wrapper) Recycle() {
	w.once.Do(func() {
		w.inst.deliveredMu.Lock()
		for i, cand := range w.inst.delivered {
			if cand == w {
				w.inst.delivered = append(w.inst.delivered[:i], w.inst.delivered[i+1:]...)
				break
			}
		}
		w.inst.deliveredMu.Unlock()
		w.buf.Release()
	})
}
