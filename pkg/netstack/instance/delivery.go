package instance

import "ipcore/pkg/netstack"

// Deliver implements §4.6 for one instance: while both the received
// list and the pending-token list are non-empty, pop the head of each
// and hand the datagram to the token. A buffer with refcount one is
// wrapped directly (no other clone can still be looking at it); a
// shared buffer is duplicated into a fresh, sole-owned copy first.
//
// Allocation failures abort the in-progress delivery and report
// out-of-resources; the queues are left intact for a future tick to
// retry (spec.md §4.6, §7).
func Deliver(inst *Instance) error {
	for len(inst.received) > 0 && len(inst.rxTokens) > 0 {
		qd := inst.received[0]
		tok := inst.rxTokens[0]

		buf := qd.Buf
		if buf.Header == nil {
			return netstack.ErrOutOfResources
		}
		if buf.RefCount() != 1 {
			dup := buf.Duplicate()
			buf.Release()
			buf = dup
		}

		w := wrap(inst, buf)

		inst.received = inst.received[1:]
		inst.rxTokens = inst.rxTokens[1:]

		inst.deliveredMu.Lock()
		inst.delivered = append(inst.delivered, w)
		inst.deliveredMu.Unlock()

		status := buf.Clip.Status
		tok.Status = status
		tok.Packet = w
		tok.signal()
	}
	return nil
}
