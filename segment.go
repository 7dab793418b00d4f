package tcpcore

import "math/bits"

// Flags is the TCP flags bit-mask, as laid out in the low 6 bits of the
// data-offset/flags word (RFC 9293 §3.1).
type Flags uint16

const (
	FlagFIN Flags = 1 << iota // FlagFIN - no more data from sender.
	FlagSYN                   // FlagSYN - synchronize sequence numbers.
	FlagRST                   // FlagRST - reset the connection.
	FlagPSH                   // FlagPSH - push function.
	FlagACK                   // FlagACK - acknowledgment field significant.
	FlagURG                   // FlagURG - urgent pointer field significant.
	FlagECE                   // FlagECE - ECN-Echo.
	FlagCWR                   // FlagCWR - congestion window reduced.
)

const flagMask = 0x3f

const (
	synack = FlagSYN | FlagACK
	finack = FlagFIN | FlagACK
)

// HasAll reports whether all bits in mask are set in flags.
func (flags Flags) HasAll(mask Flags) bool { return flags&mask == mask }

// HasAny reports whether any bit in mask is set in flags.
func (flags Flags) HasAny(mask Flags) bool { return flags&mask != 0 }

// Mask returns flags with any non-flag bits cleared.
func (flags Flags) Mask() Flags { return flags & flagMask }

// String returns a human readable flag list, e.g. "[SYN,ACK]".
func (flags Flags) String() string {
	switch flags {
	case 0:
		return "[]"
	case synack:
		return "[SYN,ACK]"
	case finack:
		return "[FIN,ACK]"
	case FlagACK:
		return "[ACK]"
	case FlagSYN:
		return "[SYN]"
	case FlagFIN:
		return "[FIN]"
	case FlagRST:
		return "[RST]"
	}
	buf := make([]byte, 0, 2+4*bits.OnesCount16(uint16(flags)))
	buf = append(buf, '[')
	buf = flags.AppendFormat(buf)
	buf = append(buf, ']')
	return string(buf)
}

// AppendFormat appends the human readable flag names in b, comma separated.
func (flags Flags) AppendFormat(b []byte) []byte {
	const names = "FIN\x00SYN\x00RST\x00PSH\x00ACK\x00URG\x00ECE\x00CWR\x00"
	first := true
	for i := 0; i < 8; i++ {
		if flags&(1<<i) == 0 {
			continue
		}
		if !first {
			b = append(b, ',')
		}
		first = false
		b = append(b, names[i*4:i*4+3]...)
	}
	return b
}

// Segment is the sequence-space view of a TCP segment: the fields the
// core needs to validate and apply a transition. It carries no payload
// bytes, only the payload length.
type Segment struct {
	SEQ     Value // sequence number of the first octet (or ISN if SYN set).
	ACK     Value // acknowledgment number, meaningful only if FlagACK set.
	DATALEN Size  // payload octets, excluding SYN/FIN.
	WND     Size  // advertised window.
	Flags   Flags
}

// LEN returns the number of sequence numbers this segment occupies,
// including one each for SYN and FIN if present.
func (seg *Segment) LEN() Size {
	add := Size(seg.Flags & FlagFIN)
	add += Size(seg.Flags>>1) & 1 // SYN bit is bit 1.
	return seg.DATALEN + add
}

// Last returns the sequence number of the final octet of the segment.
func (seg *Segment) Last() Value {
	seglen := seg.LEN()
	if seglen == 0 {
		return seg.SEQ
	}
	return Add(seg.SEQ, seglen) - 1
}

// isFirstSYN reports whether seg looks like an initial client SYN: bare
// SYN, no ACK, no payload, nonzero window.
func (seg Segment) isFirstSYN() bool {
	return seg.Flags == FlagSYN && seg.ACK == 0 && seg.DATALEN == 0 && seg.WND > 0
}

// ClientSynSegment builds the first segment an active opener sends.
func ClientSynSegment(clientISS Value, clientWND Size) Segment {
	return Segment{SEQ: clientISS, WND: clientWND, Flags: FlagSYN}
}
