package ip

import "ipcore/pkg/netstack"

// ingressError is a comparable sentinel, the same shape as
// netstack.Error, for the routine drop reasons Ingress reports. None
// of these represent a bug in this process; callers typically log them
// at debug level and move on.
type ingressError string

func (e ingressError) Error() string { return string(e) }

const (
	ErrTruncated          ingressError = "ip: frame shorter than its declared total length"
	ErrBadChecksum        ingressError = "ip: header checksum mismatch"
	ErrBadOptions         ingressError = "ip: malformed option area"
	ErrUnaddressed        ingressError = "ip: datagram not addressed to any local interface"
	ErrFragmentedWithDF   ingressError = "ip: fragment carries the Don't Fragment bit"
	ErrFragmentNotAligned ingressError = "ip: MF-set fragment length is not a multiple of 8"
	ErrDatagramTooLarge   ingressError = "ip: fragment end offset exceeds the maximum datagram size"
)

// Dispatch delivers a fully validated, and if necessary reassembled,
// datagram to the protocol layer above. global is the cast type
// computed against the full interface set; the demultiplexer
// recomputes a per-interface local cast type from it for each bound
// instance (spec.md §4.5).
type Dispatch func(buf *Buffer, global netstack.CastType) error

// Config bundles what the Ingress Validator needs from its caller
// without importing the service or instance packages, keeping this
// package's dependency graph a leaf (spec.md §4.1).
type Config struct {
	Interfaces []IfaceAddr
	Assembly   *Table
	Dispatch   Dispatch
}

// Ingress runs one received frame through header validation, cast-type
// computation, and fragment reassembly, dispatching the datagram once
// it is complete. frame must be a fresh single-block Buffer as handed
// up from the link layer; its Clip, if already set by the caller,
// carries the link-layer LinkFlag to preserve across validation.
func Ingress(cfg *Config, frame *Buffer) error {
	raw := frame.Bytes()

	hdr, err := ParseHeader(raw)
	if err != nil {
		return err
	}
	if int(hdr.Length) > len(raw) {
		return ErrTruncated
	}
	if !VerifyChecksum(raw[:hdr.HeaderBytes()]) {
		return ErrBadChecksum
	}
	if len(hdr.Options) > 0 && !ValidateOptions(hdr.Options) {
		return ErrBadOptions
	}
	if hdr.DF() && hdr.IsFragment() {
		return ErrFragmentedWithDF
	}
	if hdr.MF() && (int(hdr.Length)-hdr.HeaderBytes())%8 != 0 {
		return ErrFragmentNotAligned
	}

	if err := frame.HeadTrim(hdr.HeaderBytes()); err != nil {
		return err
	}
	if trailing := len(raw) - int(hdr.Length); trailing > 0 {
		if err := frame.TailTrim(trailing); err != nil {
			return err
		}
	}
	frame.Header = hdr

	global := ComputeGlobalCastType(hdr.DstIP, hdr.SrcIP, cfg.Interfaces)
	if global == netstack.CastNone {
		return ErrUnaddressed
	}

	var linkFlag uint32
	if frame.Clip != nil {
		linkFlag = frame.Clip.LinkFlag
	}
	frame.Clip = NewClipInfo(int(hdr.FragOffset)*8, frame.Len(), global, linkFlag)
	if frame.Clip.End > MaxDatagramSize {
		return ErrDatagramTooLarge
	}

	if hdr.IsFragment() {
		whole, err := cfg.Assembly.Reassemble(frame)
		if err != nil {
			return err
		}
		if whole == nil {
			return nil
		}
		frame = whole
		frame.Clip.CastType = global
	}

	return cfg.Dispatch(frame, global)
}
