// Package icmp implements ICMP message parsing, serialization, and the
// type classification the per-instance acceptance filter needs to tell
// query messages (which any listening instance may accept) apart from
// error messages (which only an instance that owns the offending
// upper-layer session should see).
package icmp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Message types this core recognizes.
const (
	TypeEchoReply      uint8 = 0
	TypeDestUnreach    uint8 = 3
	TypeSourceQuench   uint8 = 4
	TypeRedirect       uint8 = 5
	TypeEcho           uint8 = 8
	TypeTimeExceeded   uint8 = 11
	TypeParamProblem   uint8 = 12
	TypeTimestamp      uint8 = 13
	TypeTimestampReply uint8 = 14
	TypeInfoRequest    uint8 = 15
	TypeInfoReply      uint8 = 16
)

// Destination Unreachable codes.
const (
	CodeNetUnreach     uint8 = 0
	CodeHostUnreach    uint8 = 1
	CodeProtoUnreach   uint8 = 2
	CodePortUnreach    uint8 = 3
	CodeFragNeeded     uint8 = 4
	CodeSrcRouteFailed uint8 = 5
)

const headerLen = 8

// Class distinguishes ICMP query messages from error messages, the
// split the acceptance filter uses to decide whether any listening
// instance may take the message or only the instance that owns the
// referenced session (spec.md §4.4).
type Class uint8

const (
	ClassUnknown Class = iota
	ClassQuery
	ClassError
)

// ClassOf classifies an ICMP message type.
func ClassOf(msgType uint8) Class {
	switch msgType {
	case TypeEchoReply, TypeEcho, TypeTimestamp, TypeTimestampReply, TypeInfoRequest, TypeInfoReply:
		return ClassQuery
	case TypeDestUnreach, TypeSourceQuench, TypeRedirect, TypeTimeExceeded, TypeParamProblem:
		return ClassError
	default:
		return ClassUnknown
	}
}

// Header is a parsed ICMP header.
type Header struct {
	Type     uint8
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16
}

// Class reports which acceptance class this header's type belongs to.
func (h *Header) Class() Class { return ClassOf(h.Type) }

// ParseHeader parses an ICMP header from raw bytes.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < headerLen {
		return nil, errors.Errorf("icmp: header too short: %d bytes", len(data))
	}
	return &Header{
		Type:     data[0],
		Code:     data[1],
		Checksum: binary.BigEndian.Uint16(data[2:4]),
		ID:       binary.BigEndian.Uint16(data[4:6]),
		Seq:      binary.BigEndian.Uint16(data[6:8]),
	}, nil
}

// Serialize encodes the header to its wire form.
func (h *Header) Serialize() []byte {
	buf := make([]byte, headerLen)
	buf[0] = h.Type
	buf[1] = h.Code
	binary.BigEndian.PutUint16(buf[2:4], h.Checksum)
	binary.BigEndian.PutUint16(buf[4:6], h.ID)
	binary.BigEndian.PutUint16(buf[6:8], h.Seq)
	return buf
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

// Message is a full ICMP message: header plus payload.
type Message struct {
	Header  *Header
	Payload []byte
}

// ParseMessage parses a full ICMP message from raw bytes.
func ParseMessage(data []byte) (*Message, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	return &Message{Header: h, Payload: data[headerLen:]}, nil
}

// Serialize recomputes the checksum and encodes the full message.
func (m *Message) Serialize() []byte {
	m.Header.Checksum = 0
	buf := append(m.Header.Serialize(), m.Payload...)
	m.Header.Checksum = checksum(buf)
	out := m.Header.Serialize()
	return append(out, m.Payload...)
}

// NewEchoRequest builds an echo request (ping) message.
func NewEchoRequest(id, seq uint16, data []byte) *Message {
	return &Message{Header: &Header{Type: TypeEcho, ID: id, Seq: seq}, Payload: data}
}

// NewEchoReply builds an echo reply message, typically in response to
// a received echo request.
func NewEchoReply(id, seq uint16, data []byte) *Message {
	return &Message{Header: &Header{Type: TypeEchoReply, ID: id, Seq: seq}, Payload: data}
}

// NewDestUnreach builds a destination-unreachable message carrying the
// offending IP header (and leading payload octets) as required by RFC
// 792.
func NewDestUnreach(code uint8, origIPHdr []byte) *Message {
	return &Message{Header: &Header{Type: TypeDestUnreach, Code: code}, Payload: origIPHdr}
}

// NewTimeExceeded builds a time-exceeded message.
func NewTimeExceeded(origIPHdr []byte) *Message {
	return &Message{Header: &Header{Type: TypeTimeExceeded}, Payload: origIPHdr}
}
