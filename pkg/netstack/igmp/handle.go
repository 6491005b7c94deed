package igmp

import (
	"ipcore/pkg/netstack/ip"
)

// GroupTracker records multicast group membership reports seen on the
// wire, the minimal bookkeeping a host needs to eventually prune
// interfaces it no longer needs to receive a group on. Join/Leave are
// invoked from Handle; actual group-membership timers and queries are
// an external concern (spec.md §1 excludes interface/address/routing
// management from this core).
type GroupTracker interface {
	Join(group []byte)
	Leave(group []byte)
}

// Handle processes one IGMP datagram addressed to this host. Ownership
// of buf transfers to this call; it is always released here since IGMP
// never needs to reach an instance's receive queue (spec.md §4.7).
func Handle(buf *ip.Buffer, tracker GroupTracker) error {
	defer buf.Release()

	payload := flatten(buf)
	msg, err := ParseMessage(payload)
	if err != nil {
		return err
	}

	if tracker == nil {
		return nil
	}
	if msg.IsReport() {
		tracker.Join(msg.GroupAddr)
	} else if msg.Type == TypeLeaveGroup {
		tracker.Leave(msg.GroupAddr)
	}
	return nil
}

func flatten(buf *ip.Buffer) []byte {
	blocks := buf.FragmentTable()
	if len(blocks) == 1 {
		return blocks[0].Data
	}
	out := make([]byte, 0, buf.Len())
	for _, b := range blocks {
		out = append(out, b.Data...)
	}
	return out
}
