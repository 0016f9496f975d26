package ssh

import (
	"math/big"

	"github.com/ricardo-massaro/eessh/internal/errors"
)

// reader is a read cursor over a decoded payload. It never advances past
// the end of the underlying slice.
type reader struct {
	b   []byte
	pos int
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

func (r *reader) left() int { return len(r.b) - r.pos }

func (r *reader) Uint8() (byte, error) {
	if r.left() < 1 {
		return 0, errors.Tracef("ssh: %w: truncated byte", ErrMalformed)
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) Uint32() (uint32, error) {
	if r.left() < 4 {
		return 0, errors.Tracef("ssh: %w: truncated uint32", ErrMalformed)
	}
	v := uint32(r.b[r.pos])<<24 | uint32(r.b[r.pos+1])<<16 | uint32(r.b[r.pos+2])<<8 | uint32(r.b[r.pos+3])
	r.pos += 4
	return v, nil
}

// Bytes reads n raw bytes with no length prefix. The returned slice
// aliases the reader's backing array and must not be retained past the
// reader's lifetime if the caller mutates it elsewhere.
func (r *reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.left() < n {
		return nil, errors.Tracef("ssh: %w: truncated bytes (want %d, have %d)", ErrMalformed, n, r.left())
	}
	v := r.b[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// String reads an SSH "string": a uint32 length followed by that many
// bytes.
func (r *reader) String() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}

// NameList reads an SSH "name-list": a string whose content is a
// comma-separated, possibly empty, ASCII list.
func (r *reader) NameList() ([]string, error) {
	s, err := r.String()
	if err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, nil
	}
	var names []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			names = append(names, string(s[start:i]))
			start = i + 1
		}
	}
	return names, nil
}

// MPInt reads an SSH "mpint": a string carrying a minimal two's
// complement big-endian integer. Non-minimal encodings are rejected.
func (r *reader) MPInt() (*big.Int, error) {
	s, err := r.String()
	if err != nil {
		return nil, err
	}
	return parseMPInt(s)
}

func parseMPInt(s []byte) (*big.Int, error) {
	if len(s) == 0 {
		return new(big.Int), nil
	}
	if s[0]&0x80 != 0 {
		// Negative: two's complement. A minimal negative encoding has no
		// leading 0xff byte that is immediately followed by another byte
		// whose high bit is also set (that 0xff would be redundant sign
		// extension).
		if len(s) > 1 && s[0] == 0xff && s[1]&0x80 != 0 {
			return nil, errors.Tracef("ssh: %w: non-minimal mpint encoding", ErrMalformed)
		}
		notBytes := make([]byte, len(s))
		for i, b := range s {
			notBytes[i] = ^b
		}
		n := new(big.Int).SetBytes(notBytes)
		n.Add(n, big.NewInt(1))
		n.Neg(n)
		return n, nil
	}
	// Non-negative: a leading 0x00 byte is only valid (minimal) if the
	// following byte has its high bit set; otherwise it's a superfluous
	// leading zero.
	if len(s) > 1 && s[0] == 0x00 && s[1]&0x80 == 0 {
		return nil, errors.Tracef("ssh: %w: non-minimal mpint encoding", ErrMalformed)
	}
	return new(big.Int).SetBytes(s), nil
}
