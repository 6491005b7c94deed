// Package link is the lower link layer the ingress core treats as an
// external collaborator (spec.md §1): framing, address resolution, and
// the receive-restart contract the service layer drives.
package link

import (
	"encoding/binary"
	"fmt"
	"net"

	"ipcore/pkg/netstack"
)

// HeaderLength is the fixed Ethernet II header length in bytes.
const HeaderLength = 14

// Frame is a parsed Ethernet II frame.
type Frame struct {
	DstMAC    net.HardwareAddr
	SrcMAC    net.HardwareAddr
	EtherType netstack.EtherType
	Payload   []byte
}

// ParseFrame parses an Ethernet frame from raw bytes.
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("link: frame too short: %d bytes", len(data))
	}
	return &Frame{
		DstMAC:    net.HardwareAddr(data[0:6]),
		SrcMAC:    net.HardwareAddr(data[6:12]),
		EtherType: netstack.EtherType(binary.BigEndian.Uint16(data[12:14])),
		Payload:   data[14:],
	}, nil
}

// Serialize encodes the frame back to wire bytes.
func (f *Frame) Serialize() []byte {
	buf := make([]byte, HeaderLength+len(f.Payload))
	copy(buf[0:6], f.DstMAC)
	copy(buf[6:12], f.SrcMAC)
	binary.BigEndian.PutUint16(buf[12:14], uint16(f.EtherType))
	copy(buf[14:], f.Payload)
	return buf
}

// IsBroadcast reports whether the destination MAC is the Ethernet
// broadcast address.
func (f *Frame) IsBroadcast() bool {
	for _, b := range f.DstMAC {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// BroadcastMAC returns the Ethernet broadcast MAC address.
func BroadcastMAC() net.HardwareAddr {
	return net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
}
