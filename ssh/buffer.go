package ssh

import (
	"math/big"

	"github.com/ricardo-massaro/eessh/internal/errors"
)

// DefaultMaxBufferSize is the default ceiling on a single encoded buffer.
const DefaultMaxBufferSize = 256 * 1024

// buffer is a growable byte buffer used to build SSH wire primitives. It
// owns no cryptographic state; it is purely an encoder.
type buffer struct {
	b   []byte
	max int
}

// newBuffer returns an empty buffer that refuses to grow past max bytes.
// A max of 0 uses DefaultMaxBufferSize.
func newBuffer(max int) *buffer {
	if max <= 0 {
		max = DefaultMaxBufferSize
	}
	return &buffer{max: max}
}

func (w *buffer) Bytes() []byte { return w.b }
func (w *buffer) Len() int      { return len(w.b) }

func (w *buffer) reset() { w.b = w.b[:0] }

func (w *buffer) grow(n int) error {
	if len(w.b)+n > w.max {
		return errors.Tracef("ssh: %w: buffer would exceed %d bytes", ErrTooLarge, w.max)
	}
	return nil
}

// WriteUint8 appends a single byte.
func (w *buffer) WriteUint8(v byte) error {
	if err := w.grow(1); err != nil {
		return err
	}
	w.b = append(w.b, v)
	return nil
}

// WriteUint32 appends a big-endian uint32.
func (w *buffer) WriteUint32(v uint32) error {
	if err := w.grow(4); err != nil {
		return err
	}
	w.b = append(w.b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return nil
}

// WriteRaw appends bytes with no length prefix.
func (w *buffer) WriteRaw(p []byte) error {
	if err := w.grow(len(p)); err != nil {
		return err
	}
	w.b = append(w.b, p...)
	return nil
}

// WriteString appends an SSH "string": a uint32 length followed by the
// (opaque, possibly binary) bytes.
func (w *buffer) WriteString(p []byte) error {
	if err := w.grow(4 + len(p)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(p))); err != nil {
		return err
	}
	w.b = append(w.b, p...)
	return nil
}

// WriteNameList appends an SSH "name-list": a comma-joined ASCII string.
func (w *buffer) WriteNameList(names []string) error {
	total := 0
	for i, n := range names {
		if i > 0 {
			total++
		}
		total += len(n)
	}
	joined := make([]byte, 0, total)
	for i, n := range names {
		if i > 0 {
			joined = append(joined, ',')
		}
		joined = append(joined, n...)
	}
	return w.WriteString(joined)
}

// mpintLen returns the number of bytes mpintBytes would write for n,
// not including the 4-byte length prefix.
func mpintLen(n *big.Int) int {
	if n.Sign() == 0 {
		return 0
	}
	if n.Sign() < 0 {
		nMinus1 := new(big.Int).Neg(n)
		nMinus1.Sub(nMinus1, big.NewInt(1))
		bitLen := nMinus1.BitLen()
		length := (bitLen + 7) / 8
		if bitLen%8 == 0 {
			length++
		}
		return length
	}
	bitLen := n.BitLen()
	length := (bitLen + 7) / 8
	if bitLen%8 == 0 {
		length++
	}
	return length
}

// mpintBytes renders n as a minimal two's-complement big-endian byte
// slice: positive values whose high bit would be set are prefixed with
// 0x00, negative values are represented in two's complement with no
// superfluous 0xFF byte.
func mpintBytes(n *big.Int) []byte {
	length := mpintLen(n)
	out := make([]byte, length)
	if n.Sign() == 0 {
		return out
	}
	if n.Sign() < 0 {
		nMinus1 := new(big.Int).Neg(n)
		nMinus1.Sub(nMinus1, big.NewInt(1))
		b := nMinus1.Bytes()
		for i := range b {
			b[i] ^= 0xff
		}
		off := length - len(b)
		// Leading byte(s) are 0xff from the two's complement sign extension.
		for i := 0; i < off; i++ {
			out[i] = 0xff
		}
		copy(out[off:], b)
		return out
	}
	b := n.Bytes()
	copy(out[length-len(b):], b)
	return out
}

// WriteMPInt appends n encoded as an SSH "mpint".
func (w *buffer) WriteMPInt(n *big.Int) error {
	return w.WriteString(mpintBytes(n))
}
