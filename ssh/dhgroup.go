package ssh

import (
	"crypto"
	cryptorand "crypto/rand"
	_ "crypto/sha1" // register SHA-1 with the crypto.Hash registry
	"io"
	"math/big"
	"strings"

	"github.com/ricardo-massaro/eessh/internal/errors"
)

// dhGroup is a fixed MODP group used for group-based Diffie-Hellman key
// exchange. Only Oakley Group 2 and MODP Group 14 are supported; the
// group-exchange and ECDH variants of SSH key exchange are out of scope.
type dhGroup struct {
	g, p, pMinus2 *big.Int
	hash          crypto.Hash
}

var bigOne = big.NewInt(1)
var bigTwo = big.NewInt(2)

// newDHGroup parses a hex-encoded prime, tolerating the whitespace RFCs
// conventionally use to lay primes out in fixed-width chunks.
func newDHGroup(primeHex string, hash crypto.Hash) *dhGroup {
	clean := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' {
			return -1
		}
		return r
	}, primeHex)
	p, ok := new(big.Int).SetString(clean, 16)
	if !ok {
		panic("ssh: invalid hardcoded DH prime")
	}
	pMinus2 := new(big.Int).Sub(p, bigTwo)
	return &dhGroup{g: bigTwo, p: p, pMinus2: pMinus2, hash: hash}
}

// group1Prime is the 1024-bit Oakley Group 2 prime, RFC 2409 section 6.2.
const group1Prime = `
	FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
	29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
	EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
	E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
	EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE65381
	FFFFFFFF FFFFFFFF
`

// group14Prime is the 2048-bit MODP Group 14 prime, RFC 3526 section 3.
const group14Prime = `
	FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
	29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
	EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
	E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
	EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
	C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
	83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
	670C354E 4ABC9804 F1746C08 CA18217C 32905E46 2E36CE3B
	E39E772C 180E8603 9B2783A2 EC07A28F B5C55DF0 6F4C52C9
	DE2BCBF6 95581718 3995497C EA956AE5 15D22618 98FA0510
	15728E5A 8AACAA68 FFFFFFFF FFFFFFFF
`

// dhGroups is the closed enumeration of supported kex algorithms.
var dhGroups = map[string]*dhGroup{
	kexAlgoDH1SHA1:  newDHGroup(group1Prime, crypto.SHA1),
	kexAlgoDH14SHA1: newDHGroup(group14Prime, crypto.SHA1),
}

func lookupDHGroup(name string) (*dhGroup, bool) {
	g, ok := dhGroups[name]
	return g, ok
}

// keyPair generates an ephemeral DH key pair with x uniformly chosen in
// [2, p-2].
func (g *dhGroup) keyPair(randSource io.Reader) (public, private *big.Int, err error) {
	private, err = randIntRange(randSource, bigTwo, g.pMinus2)
	if err != nil {
		return nil, nil, err
	}
	public = new(big.Int).Exp(g.g, private, g.p)
	return public, private, nil
}

// randIntRange returns a uniform random integer in [lo, hi].
func randIntRange(randSource io.Reader, lo, hi *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, bigOne)
	n, err := cryptorand.Int(randSource, span)
	if err != nil {
		return nil, errors.Tracef("ssh: %w: %v", ErrCryptoFailure, err)
	}
	return n.Add(n, lo), nil
}

// validatePeerPublic checks the peer's DH public value is in [2, p-2],
// boundary case "f = 1 or f = p-1 rejected".
func (g *dhGroup) validatePeerPublic(f *big.Int) error {
	if f.Cmp(bigTwo) < 0 || f.Cmp(g.pMinus2) > 0 {
		return errors.Tracef("ssh: %w: DH public value out of range", ErrProtocolViolation)
	}
	return nil
}

// sharedSecret computes K = peerPublic^private mod p.
func (g *dhGroup) sharedSecret(peerPublic, private *big.Int) *big.Int {
	return new(big.Int).Exp(peerPublic, private, g.p)
}
