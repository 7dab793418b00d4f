package tcpcore

import (
	"encoding/binary"
	"errors"
	"math"
)

const sizeHeaderTCP = 20

// ErrShortHeader is returned when a caller presents a buffer shorter than
// the fixed 20-byte TCP header to [NewFrame]. It is a caller-side error
// (see spec §7, ShortHeader): the core never produces it internally.
var ErrShortHeader = errors.New("tcpcore: short tcp header")

var (
	errShortOptions  = errors.New("tcpcore: header length exceeds buffer")
	errZeroDstPort   = errors.New("tcpcore: zero destination port")
	errZeroSrcPort   = errors.New("tcpcore: zero source port")
	errHeaderTooSmal = errors.New("tcpcore: header length below 20 bytes")
)

// NewFrame wraps buf as a TCP [Frame]. buf must be at least 20 bytes, the
// fixed TCP header size; ErrShortHeader is returned otherwise. Callers
// must still call [Frame.ValidateSize] before calling [Frame.Options] or
// [Frame.Payload] to avoid a panic on truncated option lists.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeaderTCP {
		return Frame{}, ErrShortHeader
	}
	return Frame{buf: buf}, nil
}

// Frame is a packed, big-endian view over a 20-byte-or-larger TCP segment
// buffer: source/destination ports, sequence/ack numbers, the packed
// data-offset-and-flags word, window, checksum and urgent pointer (RFC
// 9293 §3.1). It performs no checksum computation; that requires the IP
// pseudo-header and is delegated entirely to the TX collaborator (§6).
type Frame struct {
	buf []byte
}

// RawData returns the buffer the frame was constructed from.
func (tfrm Frame) RawData() []byte { return tfrm.buf }

func (tfrm Frame) SourcePort() uint16 { return binary.BigEndian.Uint16(tfrm.buf[0:2]) }
func (tfrm Frame) SetSourcePort(src uint16) {
	binary.BigEndian.PutUint16(tfrm.buf[0:2], src)
}

func (tfrm Frame) DestinationPort() uint16 { return binary.BigEndian.Uint16(tfrm.buf[2:4]) }
func (tfrm Frame) SetDestinationPort(dst uint16) {
	binary.BigEndian.PutUint16(tfrm.buf[2:4], dst)
}

// Seq returns the sequence number of the first data octet (or the ISN, if
// SYN is set).
func (tfrm Frame) Seq() Value { return Value(binary.BigEndian.Uint32(tfrm.buf[4:8])) }
func (tfrm Frame) SetSeq(v Value) {
	binary.BigEndian.PutUint32(tfrm.buf[4:8], uint32(v))
}

// Ack is the next sequence number the sender expects to receive, valid
// only when FlagACK is set.
func (tfrm Frame) Ack() Value { return Value(binary.BigEndian.Uint32(tfrm.buf[8:12])) }
func (tfrm Frame) SetAck(v Value) {
	binary.BigEndian.PutUint32(tfrm.buf[8:12], uint32(v))
}

// OffsetAndFlags returns the header length (in 32-bit words) and flags.
func (tfrm Frame) OffsetAndFlags() (offset uint8, flags Flags) {
	v := binary.BigEndian.Uint16(tfrm.buf[12:14])
	offset = uint8(v >> 12)
	flags = Flags(v).Mask()
	return offset, flags
}

// SetOffsetAndFlags sets the header-length-and-flags word. offset is
// measured in 4-byte words and must be >= 5 (20 bytes) to be valid on the
// wire, though this method performs no validation itself.
func (tfrm Frame) SetOffsetAndFlags(offset uint8, flags Flags) {
	v := uint16(offset)<<12 | uint16(flags.Mask())
	binary.BigEndian.PutUint16(tfrm.buf[12:14], v)
}

// HeaderLength returns the total header length in bytes, including
// options, computed from the offset field. Performs no validation.
func (tfrm Frame) HeaderLength() int {
	offset, _ := tfrm.OffsetAndFlags()
	return 4 * int(offset)
}

func (tfrm Frame) WindowSize() uint16 { return binary.BigEndian.Uint16(tfrm.buf[14:16]) }
func (tfrm Frame) SetWindowSize(v uint16) {
	binary.BigEndian.PutUint16(tfrm.buf[14:16], v)
}

func (tfrm Frame) CRC() uint16 { return binary.BigEndian.Uint16(tfrm.buf[16:18]) }
func (tfrm Frame) SetCRC(checksum uint16) {
	binary.BigEndian.PutUint16(tfrm.buf[16:18], checksum)
}

func (tfrm Frame) UrgentPtr() uint16 { return binary.BigEndian.Uint16(tfrm.buf[18:20]) }
func (tfrm Frame) SetUrgentPtr(up uint16) {
	binary.BigEndian.PutUint16(tfrm.buf[18:20], up)
}

// Options returns the TCP option bytes. Call [Frame.ValidateSize] first.
func (tfrm Frame) Options() []byte { return tfrm.buf[sizeHeaderTCP:tfrm.HeaderLength()] }

// Payload returns the bytes following the header (not including options).
// Call [Frame.ValidateSize] first.
func (tfrm Frame) Payload() []byte { return tfrm.buf[tfrm.HeaderLength():] }

// ClearHeader zeros the fixed (non-option) portion of the header.
func (tfrm Frame) ClearHeader() {
	for i := range tfrm.buf[:sizeHeaderTCP] {
		tfrm.buf[i] = 0
	}
}

// Segment decodes the sequence-space view of the frame, given the
// already-known payload length (computed by the caller from the
// surrounding IP datagram length).
func (tfrm Frame) Segment(payloadLen int) Segment {
	if payloadLen > math.MaxInt32 {
		panic("tcpcore: payload overflow")
	}
	_, flags := tfrm.OffsetAndFlags()
	return Segment{
		SEQ:     tfrm.Seq(),
		ACK:     tfrm.Ack(),
		WND:     Size(tfrm.WindowSize()),
		DATALEN: Size(payloadLen),
		Flags:   flags,
	}
}

// SetSegment writes seq/ack/offset/flags/window from seg into the frame.
// offset is in 32-bit words (minimum 5) and must account for any options
// the caller has already written after the fixed header.
func (tfrm Frame) SetSegment(seg Segment, offset uint8) {
	if offset >= 1<<4 {
		panic("tcpcore: header offset too large")
	} else if seg.WND > math.MaxUint16 {
		panic("tcpcore: window overflow")
	}
	tfrm.SetSeq(seg.SEQ)
	tfrm.SetAck(seg.ACK)
	tfrm.SetOffsetAndFlags(offset, seg.Flags)
	tfrm.SetWindowSize(uint16(seg.WND))
}

// ValidateSize checks the offset field against the buffer length,
// returning an error describing the first inconsistency found.
func (tfrm Frame) ValidateSize() error {
	off := tfrm.HeaderLength()
	if off < sizeHeaderTCP {
		return errHeaderTooSmal
	}
	if off > len(tfrm.RawData()) {
		return errShortOptions
	}
	return nil
}

// ValidateExceptCRC performs every header-level sanity check this module
// is responsible for. It does not validate the checksum, which requires
// the IP pseudo-header and belongs to the TX/RX collaborator (§6).
func (tfrm Frame) ValidateExceptCRC() error {
	if err := tfrm.ValidateSize(); err != nil {
		return err
	}
	if tfrm.DestinationPort() == 0 {
		return errZeroDstPort
	}
	if tfrm.SourcePort() == 0 {
		return errZeroSrcPort
	}
	return nil
}
