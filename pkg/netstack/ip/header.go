package ip

import (
	"encoding/binary"
	"net"

	"github.com/pkg/errors"

	"ipcore/pkg/netstack"
)

// HeaderLength is the fixed IPv4 header length in bytes, without
// options.
const HeaderLength = 20

// MaxDatagramSize is the largest total length an IPv4 datagram may
// declare.
const MaxDatagramSize = 65535

// Header flag bits, packed into the low 3 bits of the combined
// flags/fragment-offset field exactly as the wire does.
const (
	FlagDF uint8 = 0x2
	FlagMF uint8 = 0x1
)

// Header is a parsed IPv4 header view. Fields are held in host-usable
// form (already decoded from network byte order by ParseHeader);
// Serialize re-encodes them in network byte order for upper-layer
// presentation, which is what spec.md §4.6 calls "swapping the header
// view back".
type Header struct {
	Version    uint8
	IHL        uint8 // header length in 32-bit words
	TOS        uint8
	Length     uint16 // total datagram length, header + payload
	ID         uint16
	Flags      uint8 // low 3 bits: bit1=DF, bit0=MF
	FragOffset uint16
	TTL        uint8
	Protocol   netstack.Protocol
	Checksum   uint16
	SrcIP      net.IP
	DstIP      net.IP
	Options    []byte
}

// HeaderBytes returns the number of bytes the header occupies,
// including options.
func (h *Header) HeaderBytes() int { return int(h.IHL) * 4 }

// DF reports whether the Don't Fragment bit is set.
func (h *Header) DF() bool { return h.Flags&FlagDF != 0 }

// MF reports whether the More Fragments bit is set.
func (h *Header) MF() bool { return h.Flags&FlagMF != 0 }

// IsFragment reports whether this datagram is, or is part of, a
// fragmented transmission.
func (h *Header) IsFragment() bool {
	return h.MF() || h.FragOffset != 0
}

// ParseHeader parses and structurally validates an IPv4 header from
// raw bytes, per spec.md §4.1 step 3 (excluding the buffer-size cross
// check, which the ingress validator performs once it knows the
// frame's actual length).
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, errors.Errorf("ip: header too short: %d bytes", len(data))
	}

	h := &Header{
		Version:    data[0] >> 4,
		IHL:        data[0] & 0x0F,
		TOS:        data[1],
		Length:     binary.BigEndian.Uint16(data[2:4]),
		ID:         binary.BigEndian.Uint16(data[4:6]),
		Flags:      uint8(binary.BigEndian.Uint16(data[6:8]) >> 13),
		FragOffset: binary.BigEndian.Uint16(data[6:8]) & 0x1FFF,
		TTL:        data[8],
		Protocol:   netstack.Protocol(data[9]),
		Checksum:   binary.BigEndian.Uint16(data[10:12]),
		SrcIP:      net.IPv4(data[12], data[13], data[14], data[15]).To4(),
		DstIP:      net.IPv4(data[16], data[17], data[18], data[19]).To4(),
	}

	if h.Version != 4 {
		return nil, errors.Errorf("ip: unsupported version %d", h.Version)
	}
	if h.HeaderBytes() < HeaderLength {
		return nil, errors.Errorf("ip: IHL %d too small", h.IHL)
	}
	if int(h.Length) < h.HeaderBytes() {
		return nil, errors.Errorf("ip: total length %d shorter than header %d", h.Length, h.HeaderBytes())
	}
	if h.HeaderBytes() > HeaderLength {
		optLen := h.HeaderBytes() - HeaderLength
		if len(data) < HeaderLength+optLen {
			return nil, errors.New("ip: options truncated")
		}
		h.Options = data[HeaderLength : HeaderLength+optLen]
	}

	return h, nil
}

// VerifyChecksum reports whether the header checksum over the raw
// header bytes is correct. Per spec.md §4.1 step 4, a carried checksum
// of zero is always accepted (the sender opted out).
func VerifyChecksum(raw []byte) bool {
	if binary.BigEndian.Uint16(raw[10:12]) == 0 {
		return true
	}
	return checksum(raw) == 0
}

// CalcChecksum computes the header checksum for serialization,
// treating the checksum field itself as zero.
func (h *Header) CalcChecksum() uint16 {
	buf := h.serializeWithChecksum(0)
	return checksum(buf)
}

// Serialize re-encodes the header in network byte order, recomputing
// the checksum, for upper-layer presentation (spec.md §4.6).
func (h *Header) Serialize() []byte {
	cksum := h.CalcChecksum()
	return h.serializeWithChecksum(cksum)
}

func (h *Header) serializeWithChecksum(cksum uint16) []byte {
	n := HeaderLength + len(h.Options)
	buf := make([]byte, n)
	buf[0] = (h.Version << 4) | (h.IHL & 0x0F)
	buf[1] = h.TOS
	binary.BigEndian.PutUint16(buf[2:4], h.Length)
	binary.BigEndian.PutUint16(buf[4:6], h.ID)
	frag := uint16(h.Flags&0x7)<<13 | (h.FragOffset & 0x1FFF)
	binary.BigEndian.PutUint16(buf[6:8], frag)
	buf[8] = h.TTL
	buf[9] = byte(h.Protocol)
	binary.BigEndian.PutUint16(buf[10:12], cksum)
	copy(buf[12:16], h.SrcIP.To4())
	copy(buf[16:20], h.DstIP.To4())
	if len(h.Options) > 0 {
		copy(buf[20:], h.Options)
	}
	return buf
}
