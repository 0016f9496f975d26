package ssh

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"hash"

	"github.com/ricardo-massaro/eessh/internal/errors"
)

// macSpec describes one entry of the closed MAC enumeration.
type macSpec struct {
	name   string
	keyLen int
	size   int
	newH   func() hash.Hash
}

var macSpecs = map[string]macSpec{
	macAlgoHMACSHA256: {name: macAlgoHMACSHA256, keyLen: 32, size: 32, newH: sha256.New},
	macAlgoHMACSHA512: {name: macAlgoHMACSHA512, keyLen: 64, size: 64, newH: sha512.New},
	macAlgoNone:       {name: macAlgoNone, keyLen: 0, size: 0, newH: nil},
}

func lookupMACSpec(name string) (macSpec, bool) {
	spec, ok := macSpecs[name]
	return spec, ok
}

// macState is the live, keyed state for one direction's MAC.
type macState struct {
	spec macSpec
	key  []byte
}

func newMACState(name string, key []byte) (*macState, error) {
	spec, ok := lookupMACSpec(name)
	if !ok {
		return nil, errors.Tracef("ssh: %w: unknown mac %q", ErrProtocolViolation, name)
	}
	m := &macState{spec: spec}
	if name != macAlgoNone {
		m.key = append([]byte(nil), key[:spec.keyLen]...)
	}
	return m, nil
}

func (m *macState) size() int { return m.spec.size }

// compute returns MAC(seqNum_be32 ‖ plaintextRecord).
func (m *macState) compute(seqNum uint32, plaintextRecord []byte) []byte {
	if m.spec.name == macAlgoNone {
		return nil
	}
	h := hmac.New(m.spec.newH, m.key)
	var seqBytes [4]byte
	seqBytes[0] = byte(seqNum >> 24)
	seqBytes[1] = byte(seqNum >> 16)
	seqBytes[2] = byte(seqNum >> 8)
	seqBytes[3] = byte(seqNum)
	h.Write(seqBytes[:])
	h.Write(plaintextRecord)
	return h.Sum(nil)
}

// verify recomputes the MAC and compares it against want in constant
// time with respect to the number of matching leading bytes.
func (m *macState) verify(seqNum uint32, plaintextRecord, want []byte) bool {
	if m.spec.name == macAlgoNone {
		return len(want) == 0
	}
	got := m.compute(seqNum, plaintextRecord)
	// subtle.ConstantTimeCompare already avoids short-circuiting on the
	// first mismatch; it still requires equal lengths, which MAC output
	// is guaranteed to have for a given algorithm.
	if len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
