package tcpcore

import (
	"encoding/binary"

	"github.com/nibbleware/tcpcore/internal"
	"golang.org/x/crypto/blake2s"
)

// ISSSource resolves spec §9 Open Question 1 ("how does a connection pick
// its ISN?") via dependency inversion: the API orchestrator is configured
// with one, and every active/passive open asks it for the next Initial
// Send Sequence number rather than hard-coding a generator.
type ISSSource interface {
	// NextISS returns the ISS to use for a connection identified by tuple.
	// Implementations must not block.
	NextISS(tuple FourTuple) Value
}

// CounterISSSource is a deterministic ISSSource suitable for tests and
// reproducible fixtures: it advances a 32-bit xorshift generator (ported
// from the pseudo-random helper the teacher codebase uses for allocation-
// free jitter) seeded once at construction.
type CounterISSSource struct {
	state uint32
}

// NewCounterISSSource seeds a CounterISSSource. seed must be non-zero;
// xorshift generators are fixed-point at zero.
func NewCounterISSSource(seed uint32) *CounterISSSource {
	if seed == 0 {
		seed = 1
	}
	return &CounterISSSource{state: seed}
}

// NextISS advances and returns the generator's state. The tuple is not
// mixed in: callers that need per-tuple unlinkability should use
// [CryptoISSSource] instead.
func (c *CounterISSSource) NextISS(FourTuple) Value {
	c.state = internal.Prand32(c.state)
	return Value(c.state)
}

// issKeySize is blake2s-256's key size used for keyed hashing.
const issKeySize = 32

// CryptoISSSource implements RFC 6528's recommended ISN generator: a
// cryptographic hash of the connection's 4-tuple, rate-advanced by a
// coarse clock tick, under a secret key chosen once at process start. It
// is the production default: unlike [CounterISSSource] it gives an
// off-path attacker no way to predict the next ISS from a prior one.
type CryptoISSSource struct {
	key   [issKeySize]byte
	clock func() uint32 // returns a coarse (e.g. 4us-resolution) tick; RFC 6528 §3
}

// NewCryptoISSSource builds a CryptoISSSource from a caller-supplied
// secret key (32 bytes, kept for the process lifetime) and a monotonic
// tick function. clock must never be nil.
func NewCryptoISSSource(key [issKeySize]byte, clock func() uint32) *CryptoISSSource {
	return &CryptoISSSource{key: key, clock: clock}
}

// NextISS computes ISS = M + F(localaddr, localport, remoteaddr, remoteport, secretkey)
// per RFC 6528 §3, using blake2s-256 keyed with the secret as F.
func (c *CryptoISSSource) NextISS(tuple FourTuple) Value {
	h, err := blake2s.New256(c.key[:])
	if err != nil {
		// Only fails on an invalid key size, which NewCryptoISSSource's
		// fixed-size key array makes unreachable.
		panic("tcpcore: blake2s keyed hash: " + err.Error())
	}
	writeTupleBytes(h, tuple)
	sum := h.Sum(nil)
	f := binary.BigEndian.Uint32(sum[:4])
	return Value(c.clock() + f)
}

type byteWriter interface {
	Write(p []byte) (int, error)
}

func writeTupleBytes(w byteWriter, tuple FourTuple) {
	var buf [4]byte
	if b := tuple.LocalAddr.As16(); true {
		_, _ = w.Write(b[:])
	}
	binary.BigEndian.PutUint16(buf[:2], tuple.LocalPort)
	_, _ = w.Write(buf[:2])
	if b := tuple.RemoteAddr.As16(); true {
		_, _ = w.Write(b[:])
	}
	binary.BigEndian.PutUint16(buf[:2], tuple.RemotePort)
	_, _ = w.Write(buf[:2])
}
