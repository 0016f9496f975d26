package ssh

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/ricardo-massaro/eessh/internal/errors"
)

// cryptoDirection selects which half of a symmetric mode a cipherState
// performs; CBC needs a distinct key schedule per direction, CTR/none do
// not care.
type cryptoDirection int

const (
	dirEncrypt cryptoDirection = iota
	dirDecrypt
)

// cipherSpec describes one entry of the closed cipher enumeration: a
// name-keyed, fixed set of variants, no open-ended registration.
type cipherSpec struct {
	name      string
	keyLen    int
	ivLen     int
	blockLen  int // 0 for "none"; alignment uses max(blockLen, 8)
}

var cipherSpecs = map[string]cipherSpec{
	cipherAlgoAES128CBC: {name: cipherAlgoAES128CBC, keyLen: 16, ivLen: 16, blockLen: 16},
	cipherAlgoAES128CTR: {name: cipherAlgoAES128CTR, keyLen: 16, ivLen: 16, blockLen: 16},
	cipherAlgoNone:      {name: cipherAlgoNone, keyLen: 0, ivLen: 0, blockLen: 0},
}

func lookupCipherSpec(name string) (cipherSpec, bool) {
	spec, ok := cipherSpecs[name]
	return spec, ok
}

// alignBlockLen returns the record alignment unit: max(cipher_block_len, 8).
func alignBlockLen(blockLen int) int {
	if blockLen < 8 {
		return 8
	}
	return blockLen
}

// cipherState is the live, keyed state for one direction's cipher.
type cipherState struct {
	spec   cipherSpec
	stream cipher.Stream   // aes128-ctr, none
	block  cipher.BlockMode // aes128-cbc
}

func newCipherState(name string, dir cryptoDirection, key, iv []byte) (*cipherState, error) {
	spec, ok := lookupCipherSpec(name)
	if !ok {
		return nil, errors.Tracef("ssh: %w: unknown cipher %q", ErrProtocolViolation, name)
	}
	cs := &cipherState{spec: spec}
	switch name {
	case cipherAlgoNone:
		cs.stream = noneStream{}
	case cipherAlgoAES128CTR:
		block, err := aes.NewCipher(key[:spec.keyLen])
		if err != nil {
			return nil, errors.Tracef("ssh: %w: %v", ErrCryptoFailure, err)
		}
		cs.stream = cipher.NewCTR(block, iv[:spec.ivLen])
	case cipherAlgoAES128CBC:
		block, err := aes.NewCipher(key[:spec.keyLen])
		if err != nil {
			return nil, errors.Tracef("ssh: %w: %v", ErrCryptoFailure, err)
		}
		if dir == dirEncrypt {
			cs.block = cipher.NewCBCEncrypter(block, iv[:spec.ivLen])
		} else {
			cs.block = cipher.NewCBCDecrypter(block, iv[:spec.ivLen])
		}
	default:
		return nil, errors.Tracef("ssh: %w: unsupported cipher %q", ErrProtocolViolation, name)
	}
	return cs, nil
}

// crypt encrypts or decrypts the entire record region (length, padlen,
// payload, padding) as a single operation.
func (c *cipherState) crypt(dst, src []byte) {
	if c.block != nil {
		c.block.CryptBlocks(dst, src)
		return
	}
	c.stream.XORKeyStream(dst, src)
}

func (c *cipherState) blockLen() int { return c.spec.blockLen }

// noneStream is the identity cipher used before the first key exchange.
type noneStream struct{}

func (noneStream) XORKeyStream(dst, src []byte) { copy(dst, src) }
