package ip

import (
	"net"

	"github.com/pkg/errors"
)

// bucketCount is the size of the Assembly Table's hash array. 127 is
// prime, keeping the distribution reasonable for the small number of
// concurrently reassembling datagrams a firmware-scale stack actually
// sees, the same tradeoff therealutkarshpriyadarshi-network's fragment
// table makes at a smaller fixed size.
const bucketCount = 127

// fragmentLife is the number of aging-timer ticks a reassembly entry
// survives without receiving a new fragment before it is discarded,
// per spec.md §4.8.
const fragmentLife = 120

// entryKey identifies one in-flight reassembly by the 4-tuple RFC 791
// uses to associate fragments: source, destination, identification,
// and protocol.
type entryKey struct {
	dst      [4]byte
	src      [4]byte
	id       uint16
	protocol uint8
}

func ipKey(ip net.IP) [4]byte {
	var k [4]byte
	copy(k[:], ip.To4())
	return k
}

// entry is one bucket-list node: the ordered, non-overlapping run of
// fragment buffers collected so far for one datagram, plus the
// bookkeeping needed to detect completion.
type entry struct {
	key       entryKey
	fragments []*Buffer // sorted by Clip.Start, pairwise non-overlapping
	curLen    int       // sum of fragment lengths currently held
	totalLen  int       // full datagram length, known once the last fragment (MF=0) arrives; 0 until then
	head      *Header   // header of the fragment carrying offset 0
	headClip  *ClipInfo // clip info of the fragment carrying offset 0
	life      int
}

// Table is the Assembly Table: a fixed array of hash buckets, each
// holding the in-flight reassembly entries that hash to it. Every
// exported method assumes single-threaded, cooperative access from the
// ingress path, matching the rest of this package.
type Table struct {
	buckets [bucketCount][]*entry
}

// NewTable returns an empty Assembly Table.
func NewTable() *Table {
	return &Table{}
}

func bucketIndex(k entryKey) int {
	h := uint32(k.dst[0]) | uint32(k.dst[1])<<8 | uint32(k.dst[2])<<16 | uint32(k.dst[3])<<24
	h ^= uint32(k.src[0]) | uint32(k.src[1])<<8 | uint32(k.src[2])<<16 | uint32(k.src[3])<<24
	h ^= uint32(k.id) << 5
	h ^= uint32(k.protocol) << 13
	h ^= h >> 16
	return int(h % bucketCount)
}

func removeEntryAt(t *Table, idx int, e *entry) {
	bucket := t.buckets[idx]
	for i, cand := range bucket {
		if cand == e {
			t.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

func freeEntryFragments(e *entry) {
	for _, f := range e.fragments {
		f.Release()
	}
}

// Reassemble inserts a validated fragment into the table and reports a
// fully reassembled datagram once the last fragment needed to
// complete it arrives. frag must carry a parsed Header and a ClipInfo
// whose Start/Length/End describe its offset within the parent
// datagram (spec.md §4.3). A nil Buffer with a nil error means the
// fragment was accepted but the datagram is not yet complete, or the
// fragment was a pure duplicate and was discarded.
func (t *Table) Reassemble(frag *Buffer) (*Buffer, error) {
	if frag.Header == nil || frag.Clip == nil {
		return nil, errors.New("ip: fragment missing header or clip info")
	}

	key := entryKey{
		dst:      ipKey(frag.Header.DstIP),
		src:      ipKey(frag.Header.SrcIP),
		id:       frag.Header.ID,
		protocol: uint8(frag.Header.Protocol),
	}
	idx := bucketIndex(key)

	var e *entry
	for _, cand := range t.buckets[idx] {
		if cand.key == key {
			e = cand
			break
		}
	}
	if e == nil {
		e = &entry{key: key, life: fragmentLife}
		t.buckets[idx] = append(t.buckets[idx], e)
		reassemblyActiveFragments.Inc()
	} else {
		e.life = fragmentLife
	}

	// Find the insertion point: the first existing fragment whose
	// start is strictly after the new one, and remember its
	// immediate predecessor for left-overlap resolution.
	var prev *Buffer
	insertAt := len(e.fragments)
	for i, existing := range e.fragments {
		if existing.Clip.Start > frag.Clip.Start {
			insertAt = i
			break
		}
		prev = existing
	}

	if prev != nil && frag.Clip.Start < prev.Clip.End {
		if frag.Clip.End <= prev.Clip.End {
			// Entirely covered by the predecessor: pure duplicate.
			frag.Release()
			return nil, nil
		}
		trim := prev.Clip.End - frag.Clip.Start
		if err := frag.HeadTrim(trim); err != nil {
			return nil, err
		}
		frag.Clip.Start += trim
		frag.Clip.Length -= trim
	}

	e.fragments = append(e.fragments, nil)
	copy(e.fragments[insertAt+1:], e.fragments[insertAt:])
	e.fragments[insertAt] = frag

	// Resolve overlap against successors: fragments fully covered by
	// the new one are dropped outright; a successor that only
	// partially overlaps trims the new fragment's tail instead,
	// unless the new fragment is the one that turns out redundant.
	i := insertAt + 1
	for i < len(e.fragments) {
		succ := e.fragments[i]
		switch {
		case succ.Clip.End <= frag.Clip.End:
			e.curLen -= succ.Clip.Length
			succ.Release()
			e.fragments = append(e.fragments[:i], e.fragments[i+1:]...)
			continue
		case succ.Clip.Start < frag.Clip.End:
			if succ.Clip.Start == frag.Clip.Start {
				// The new fragment is the strictly shorter one at this
				// offset: drop it and keep the successor.
				e.fragments = append(e.fragments[:insertAt], e.fragments[insertAt+1:]...)
				frag.Release()
				return nil, nil
			}
			trim := frag.Clip.End - succ.Clip.Start
			if err := frag.TailTrim(trim); err != nil {
				return nil, err
			}
			frag.Clip.End = succ.Clip.Start
			frag.Clip.Length -= trim
		}
		break
	}

	e.curLen += frag.Clip.Length
	if frag.Clip.Start == 0 {
		e.head = frag.Header
		headClip := *frag.Clip
		e.headClip = &headClip
	}
	if !frag.Header.MF() && e.totalLen == 0 {
		e.totalLen = frag.Clip.End
	}

	// Overlap resolution above keeps the held fragments pairwise
	// non-overlapping, so once the last held fragment ends exactly at
	// totalLen, curLen can only reach totalLen when they are gap-free.
	// An entry holding a fragment past totalLen is malformed and is
	// discarded.
	if e.totalLen == 0 || e.curLen < e.totalLen {
		return nil, nil
	}

	removeEntryAt(t, idx, e)
	reassemblyActiveFragments.Dec()

	if last := e.fragments[len(e.fragments)-1]; last.Clip.End != e.totalLen {
		freeEntryFragments(e)
		return nil, nil
	}

	whole := concatBuffers(e.fragments)
	whole.Header = e.head
	whole.Clip = e.headClip
	whole.OnFree(func() { freeEntryFragments(e) })
	return whole, nil
}

// Age decrements the life of every in-flight entry by one tick and
// discards those that reach zero, per spec.md §4.8. Entries created or
// touched this tick start at fragmentLife, so an entry only expires
// after fragmentLife consecutive ticks without a new fragment.
func (t *Table) Age() {
	for idx := range t.buckets {
		bucket := t.buckets[idx]
		kept := bucket[:0]
		for _, e := range bucket {
			if e.life > 0 {
				e.life--
			}
			if e.life <= 0 {
				freeEntryFragments(e)
				reassemblyActiveFragments.Dec()
				continue
			}
			kept = append(kept, e)
		}
		t.buckets[idx] = kept
	}
}

// Len reports the number of in-flight reassembly entries, for tests
// and diagnostics.
func (t *Table) Len() int {
	n := 0
	for _, bucket := range t.buckets {
		n += len(bucket)
	}
	return n
}
