// Package ip implements IPv4 header validation, cast-type computation,
// and fragment reassembly: the receive-side core of the protocol
// layer described in the repository's design documents.
package ip

import (
	"sync"

	"github.com/pkg/errors"
)

// Block describes one physically contiguous piece of a Buffer's
// backing storage, exported via FragmentTable for upper-layer
// consumption without requiring the buffer to be contiguous.
type Block struct {
	Data []byte
}

// shared is the refcounted storage backing one or more Buffer handles.
// Cloning a Buffer bumps refs and returns a new handle over the same
// shared storage; duplicating copies bytes into a fresh shared.
type shared struct {
	mu     sync.Mutex
	refs   int32
	blocks []Block
	onFree func()
}

func newShared(blocks []Block) *shared {
	return &shared{refs: 1, blocks: blocks}
}

func (s *shared) addRef() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

// release decrements the refcount and runs onFree exactly once when it
// reaches zero. Reports the refcount after the decrement.
func (s *shared) release() int32 {
	s.mu.Lock()
	s.refs--
	n := s.refs
	cb := s.onFree
	if n == 0 {
		s.onFree = nil
	}
	s.mu.Unlock()
	if n == 0 && cb != nil {
		cb()
	}
	return n
}

func (s *shared) refCount() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

func (s *shared) totalLen() int {
	n := 0
	for _, b := range s.blocks {
		n += len(b.Data)
	}
	return n
}

// Buffer is an opaque byte container: a logical [start,end) window over
// one or more physical blocks, a reference count shared across clones,
// a back-pointer to a parsed header view, and an attached Clip Info.
// Buffers are created by the link layer on receive and by this package
// via Clone (shared storage, new handle) and Duplicate (copy into a
// fresh contiguous backing). They are destroyed only when their
// refcount reaches zero.
type Buffer struct {
	data   *shared
	start  int
	end    int
	Header *Header
	Clip   *ClipInfo
}

// NewBuffer wraps raw frame bytes as received from the link layer. The
// returned Buffer owns a single physical block and starts with
// refcount 1.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{
		data:  newShared([]Block{{Data: data}}),
		start: 0,
		end:   len(data),
	}
}

// Len reports the number of logical bytes currently in view.
func (b *Buffer) Len() int { return b.end - b.start }

// RefCount reports the current shared refcount across all handles.
func (b *Buffer) RefCount() int32 { return b.data.refCount() }

// OnFree registers a callback invoked exactly once when the last
// handle referencing this buffer's storage is released. Used by the
// Assembly Table to free a reassembly entry once its materialized
// datagram is fully consumed.
func (b *Buffer) OnFree(fn func()) {
	b.data.mu.Lock()
	b.data.onFree = fn
	b.data.mu.Unlock()
}

// Release drops one reference. Once the shared refcount reaches zero
// the registered OnFree callback, if any, runs.
func (b *Buffer) Release() {
	b.data.release()
}

// HeadTrim removes n bytes from the front of the logical view. The
// sole mutation operations on a Buffer's range are HeadTrim and
// TailTrim (plus assigning Header once parsed).
func (b *Buffer) HeadTrim(n int) error {
	if n < 0 || n > b.Len() {
		return errors.Errorf("ip: head-trim %d exceeds buffer length %d", n, b.Len())
	}
	b.start += n
	return nil
}

// TailTrim removes n bytes from the back of the logical view.
func (b *Buffer) TailTrim(n int) error {
	if n < 0 || n > b.Len() {
		return errors.Errorf("ip: tail-trim %d exceeds buffer length %d", n, b.Len())
	}
	b.end -= n
	return nil
}

// Clone returns a new handle sharing this buffer's underlying storage
// (refcount bumped by one) but with its own Clip Info copy, so a
// per-instance life/status can be tracked independently per clone.
func (b *Buffer) Clone() *Buffer {
	b.data.addRef()
	clone := &Buffer{
		data:   b.data,
		start:  b.start,
		end:    b.end,
		Header: b.Header,
	}
	if b.Clip != nil {
		c := *b.Clip
		clone.Clip = &c
	}
	return clone
}

// Duplicate copies the buffer's current logical window into a fresh,
// contiguous, single-block backing with its own refcount starting at
// one. Used when a shared buffer must be handed to a consumer that
// needs sole ownership (see instance delivery, §4.6).
func (b *Buffer) Duplicate() *Buffer {
	out := make([]byte, b.Len())
	copy(out, b.contiguousBestEffort())
	dup := &Buffer{
		data:   newShared([]Block{{Data: out}}),
		start:  0,
		end:    len(out),
		Header: b.Header,
	}
	if b.Clip != nil {
		c := *b.Clip
		dup.Clip = &c
	}
	return dup
}

// Bytes returns the logical window as a contiguous slice when the
// buffer is backed by a single physical block (the common case for
// buffers fresh off the link layer, or after a head-trim of the
// header). It panics if called on a genuinely multi-block buffer;
// callers that may see a multi-block buffer (delivery) must use
// FragmentTable instead.
func (b *Buffer) Bytes() []byte {
	if len(b.data.blocks) != 1 {
		panic("ip: Bytes() called on a multi-block buffer; use FragmentTable")
	}
	return b.data.blocks[0].Data[b.start:b.end]
}

// contiguousBestEffort flattens the logical window across however many
// physical blocks back it, without requiring the caller to know the
// layout. Used internally by Duplicate.
func (b *Buffer) contiguousBestEffort() []byte {
	if len(b.data.blocks) == 1 {
		return b.data.blocks[0].Data[b.start:b.end]
	}
	out := make([]byte, 0, b.Len())
	skip := b.start
	remaining := b.Len()
	for _, blk := range b.data.blocks {
		if remaining == 0 {
			break
		}
		if skip >= len(blk.Data) {
			skip -= len(blk.Data)
			continue
		}
		avail := blk.Data[skip:]
		skip = 0
		take := len(avail)
		if take > remaining {
			take = remaining
		}
		out = append(out, avail[:take]...)
		remaining -= take
	}
	return out
}

// FragmentTable exports the buffer's backing as a list of physical
// {base, length} blocks restricted to the current logical window,
// without copying. This is what Delivery hands to the upper layer when
// the buffer is not shared (§4.6) and what a completed reassembly's
// Buffer is built from (a logical concatenation of fragment buffers).
func (b *Buffer) FragmentTable() []Block {
	var out []Block
	skip := b.start
	remaining := b.Len()
	for _, blk := range b.data.blocks {
		if remaining == 0 {
			break
		}
		if skip >= len(blk.Data) {
			skip -= len(blk.Data)
			continue
		}
		avail := blk.Data[skip:]
		skip = 0
		take := len(avail)
		if take > remaining {
			take = remaining
		}
		out = append(out, Block{Data: avail[:take]})
		remaining -= take
	}
	return out
}

// concatBuffers builds a new Buffer whose physical storage is the
// logical concatenation of the given buffers' blocks, in order,
// without copying any bytes. Used by the Assembly Table to materialize
// a completed datagram from its ordered fragment list.
func concatBuffers(parts []*Buffer) *Buffer {
	var blocks []Block
	for _, p := range parts {
		blocks = append(blocks, p.FragmentTable()...)
	}
	total := 0
	for _, blk := range blocks {
		total += len(blk.Data)
	}
	return &Buffer{
		data:  newShared(blocks),
		start: 0,
		end:   total,
	}
}
