// Package igmp implements minimal IGMP message parsing: enough for the
// ingress core to recognize membership reports and queries and hand
// them to a dispatched handler. No example in the reference corpus
// implements IGMP, so this package follows RFC 2236's wire layout
// directly rather than adapting an existing parser.
package igmp

import (
	"encoding/binary"
	"net"

	"github.com/pkg/errors"
)

// Message types.
const (
	TypeMembershipQuery    uint8 = 0x11
	TypeV1MembershipReport uint8 = 0x12
	TypeV2MembershipReport uint8 = 0x16
	TypeLeaveGroup         uint8 = 0x17
)

const headerLen = 8

// Message is a parsed IGMP v1/v2 message.
type Message struct {
	Type        uint8
	MaxRespTime uint8
	Checksum    uint16
	GroupAddr   net.IP
}

// ParseMessage parses an IGMP message from raw bytes.
func ParseMessage(data []byte) (*Message, error) {
	if len(data) < headerLen {
		return nil, errors.Errorf("igmp: message too short: %d bytes", len(data))
	}
	return &Message{
		Type:        data[0],
		MaxRespTime: data[1],
		Checksum:    binary.BigEndian.Uint16(data[2:4]),
		GroupAddr:   net.IPv4(data[4], data[5], data[6], data[7]).To4(),
	}, nil
}

// Serialize encodes the message to its wire form, recomputing the
// checksum.
func (m *Message) Serialize() []byte {
	buf := make([]byte, headerLen)
	buf[0] = m.Type
	buf[1] = m.MaxRespTime
	copy(buf[4:8], m.GroupAddr.To4())
	binary.BigEndian.PutUint16(buf[2:4], checksum(buf))
	return buf
}

// IsReport reports whether the message is a membership report (v1 or
// v2), the class of message relevant to multicast group join
// tracking.
func (m *Message) IsReport() bool {
	return m.Type == TypeV1MembershipReport || m.Type == TypeV2MembershipReport
}

func checksum(data []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(data); i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}
	for sum > 0xFFFF {
		sum = (sum >> 16) + (sum & 0xFFFF)
	}
	return ^uint16(sum)
}
