package tcpcore

import (
	"encoding/binary"
	"errors"
	"io"
)

// Embed low 5 bits of counter into cookie for efficient validation.
// Lower bits of cookie are counter bits.
const (
	cookiebits  = 32
	counterbits = 5
	countermsk  = (1 << counterbits) - 1
)

// SYNCookieISSSource implements RFC 4987 SYN cookies as an [ISSSource]: it
// lets a Listen connection hand out an ISS for every SYN without keeping
// per-half-open-connection state, by encoding the tuple and a coarse
// counter into the ISS itself and re-deriving it when the final ACK of
// the handshake arrives.
//
// The cookie encodes:
//   - A hash of the connection tuple (local/remote address and port)
//   - A counter for cookie expiration
//
// See RFC 4987 for background on SYN flood attacks and cookie-based
// mitigations.
type SYNCookieISSSource struct {
	// counter is incremented periodically or under pressure to expire old
	// cookies. Cookies generated with a counter more than maxCounterDelta
	// behind current are rejected.
	counter uint32
	// maxCounterDelta defines how many counter increments a cookie remains
	// valid. A value of 2 means cookies from counter, counter-1, and
	// counter-2 are accepted.
	maxCounterDelta uint32
	// secret is the key used for cookie generation. Random, process-lifetime.
	secret [16]byte
}

// SYNCookieConfig configures a [SYNCookieISSSource].
type SYNCookieConfig struct {
	// Rand is used for entropy generation of the secret key.
	Rand io.Reader
	// MaxCounterDelta defines cookie validity window in counter increments.
	// Recommended value is 1-2. Zero defaults to 1.
	MaxCounterDelta uint32
}

var errInvalidCookie = errors.New("tcpcore: invalid syn cookie")

// NewSYNCookieISSSource builds a SYNCookieISSSource per config, reading a
// fresh secret key from config.Rand.
func NewSYNCookieISSSource(config SYNCookieConfig) (*SYNCookieISSSource, error) {
	var sc SYNCookieISSSource
	if err := sc.Reset(config); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Reset initializes or reinitializes the cookie source with config. The
// counter is preserved across resets; the secret is replaced, so cookies
// issued before the reset no longer validate.
func (sc *SYNCookieISSSource) Reset(config SYNCookieConfig) error {
	if config.Rand == nil {
		return errors.New("tcpcore: SYNCookieConfig.Rand is nil")
	}
	if _, err := io.ReadFull(config.Rand, sc.secret[:]); err != nil {
		return err
	}
	maxDelta := config.MaxCounterDelta
	if maxDelta == 0 {
		maxDelta = 1
	}
	sc.maxCounterDelta = maxDelta
	return nil
}

// IncrementCounter advances the counter, which will eventually expire old
// cookies. Call this periodically (e.g. every few seconds) or when under
// SYN flood pressure.
func (sc *SYNCookieISSSource) IncrementCounter() { sc.counter++ }

// Counter returns the current counter value.
func (sc *SYNCookieISSSource) Counter() uint32 { return sc.counter }

// NextISS implements [ISSSource]. It does not use clientISN from the
// tuple directly (FourTuple carries no sequence numbers); callers driving
// a passive open from a received SYN should use [SYNCookieISSSource.MakeSYNCookie]
// instead so the client's ISN is bound into the cookie.
func (sc *SYNCookieISSSource) NextISS(tuple FourTuple) Value {
	return sc.MakeSYNCookie(tuple, 0)
}

// MakeSYNCookie creates a SYN cookie value to be used as the ISS in a
// SYN-ACK response. The cookie encodes the connection tuple, the client's
// ISN and the current counter for later validation.
func (sc *SYNCookieISSSource) MakeSYNCookie(tuple FourTuple, clientISN Value) Value {
	return sc.generateWithCounter(tuple, clientISN, sc.counter)
}

// generateWithCounter creates a cookie using a specific counter value.
func (sc *SYNCookieISSSource) generateWithCounter(tuple FourTuple, clientISN Value, counter uint32) Value {
	// Cookie structure (32 bits):
	//   [27 bits: hash of tuple+secret+counter][5 bits: counter low bits]
	//
	// The counter bits allow validation to check multiple counter values
	// efficiently. The hash provides cryptographic binding to the tuple.
	hash := sc.hashTuple(tuple, clientISN, counter)
	hash = hash << counterbits
	return Value(hash | counter&countermsk)
}

// ValidateSYNCookie checks whether ackNum from a client completing the
// handshake contains a valid cookie for tuple/clientISN. Returns the
// original cookie value if valid.
func (sc *SYNCookieISSSource) ValidateSYNCookie(tuple FourTuple, clientISN Value, ackNum Value) (Value, error) {
	// Client ACKs cookie+1, so the cookie is ackNum-1.
	cookie := Value(uint32(ackNum) - 1)
	cookieCounterBits := uint32(cookie) & countermsk

	for delta := uint32(0); delta <= sc.maxCounterDelta; delta++ {
		tryCounter := sc.counter - delta
		if tryCounter&countermsk != cookieCounterBits {
			continue
		}
		expected := sc.generateWithCounter(tuple, clientISN, tryCounter)
		if expected == cookie {
			return cookie, nil
		}
	}
	return 0, errInvalidCookie
}

// hashTuple computes a hash of the connection tuple mixed with secret,
// client ISN and counter. Uses a simple but effective mixing function
// suitable for embedded systems (no allocation, no external hash package).
func (sc *SYNCookieISSSource) hashTuple(tuple FourTuple, clientISN Value, counter uint32) uint32 {
	h0 := binary.LittleEndian.Uint32(sc.secret[0:4])
	h1 := binary.LittleEndian.Uint32(sc.secret[4:8])
	h2 := binary.LittleEndian.Uint32(sc.secret[8:12])
	h3 := binary.LittleEndian.Uint32(sc.secret[12:16])

	h0 ^= uint32(tuple.LocalPort) | (uint32(tuple.RemotePort) << 16)
	h1 ^= uint32(clientISN)
	h2 ^= counter

	srcAddr := tuple.RemoteAddr.AsSlice()
	dstAddr := tuple.LocalAddr.AsSlice()

	for i := 0; i+3 < len(srcAddr); i += 4 {
		h3 ^= binary.LittleEndian.Uint32(srcAddr[i:])
		h0, h1, h2, h3 = mixRound(h0, h1, h2, h3)
	}
	if rem := len(srcAddr) % 4; rem != 0 {
		var last uint32
		for i := 0; i < rem; i++ {
			last |= uint32(srcAddr[len(srcAddr)-rem+i]) << (i * 8)
		}
		h3 ^= last
	}

	for i := 0; i+3 < len(dstAddr); i += 4 {
		h0 ^= binary.LittleEndian.Uint32(dstAddr[i:])
		h0, h1, h2, h3 = mixRound(h0, h1, h2, h3)
	}
	if rem := len(dstAddr) % 4; rem != 0 {
		var last uint32
		for i := 0; i < rem; i++ {
			last |= uint32(dstAddr[len(dstAddr)-rem+i]) << (i * 8)
		}
		h0 ^= last
	}

	h0, h1, h2, h3 = mixRound(h0, h1, h2, h3)
	h0, h1, h2, h3 = mixRound(h0, h1, h2, h3)

	return h0 ^ h1 ^ h2 ^ h3
}

// mixRound performs one round of mixing, similar to a SipHash quarter-round.
func mixRound(a, b, c, d uint32) (uint32, uint32, uint32, uint32) {
	a += b
	d ^= a
	d = rotl32(d, 16)

	c += d
	b ^= c
	b = rotl32(b, 12)

	a += b
	d ^= a
	d = rotl32(d, 8)

	c += d
	b ^= c
	b = rotl32(b, 7)

	return a, b, c, d
}

// rotl32 performs a 32-bit left rotation.
func rotl32(x uint32, n int) uint32 {
	return (x << n) | (x >> (32 - n))
}

// encodeMSSIndex encodes an MSS value into a 2-bit index for embedding in
// cookies that want to preserve the client's MSS hint despite carrying no
// per-connection state.
func encodeMSSIndex(mss uint16) uint8 {
	switch {
	case mss <= 536:
		return 0
	case mss <= 1220:
		return 1
	case mss <= 1460:
		return 2
	default:
		return 3
	}
}

// decodeMSSIndex converts a 2-bit index back to an MSS value.
func decodeMSSIndex(idx uint8) uint16 {
	switch idx & 0x3 {
	case 0:
		return 536
	case 1:
		return 1220
	case 2:
		return 1460
	default:
		return 8960
	}
}
