package icmp

import (
	"ipcore/pkg/netstack/ip"
)

// Handle processes one ICMP datagram addressed to this host
// (spec.md §4.7: ICMP is an external collaborator invoked directly from
// protocol dispatch, ownership of buf transferring to this call).
//
// An echo request is answered immediately through reply, the injected
// transmit hook (the transmit path itself is out of scope, per
// spec.md §1). An error-class message instead comes back as forward:
// the owning instance — whichever one sent the traffic this error
// describes — still needs to see it, which only the service layer can
// arrange by calling instance.Demultiplex with the embedded protocol.
// Handle releases buf itself unless it is returned as forward.
func Handle(hdr *ip.Header, buf *ip.Buffer, reply func(*Message) error) (forward *ip.Buffer, err error) {
	payload := flatten(buf)
	msg, err := ParseMessage(payload)
	if err != nil {
		buf.Release()
		return nil, err
	}

	switch msg.Header.Class() {
	case ClassError:
		return buf, nil
	case ClassQuery:
		defer buf.Release()
		if msg.Header.Type == TypeEcho {
			echo := NewEchoReply(msg.Header.ID, msg.Header.Seq, msg.Payload)
			return nil, reply(echo)
		}
		return nil, nil
	default:
		buf.Release()
		return nil, nil
	}
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
