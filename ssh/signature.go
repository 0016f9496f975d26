package ssh

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"math/big"

	"github.com/ricardo-massaro/eessh/internal/errors"
)

// rsaPublicKey is the decoded form of an "ssh-rsa" public key blob:
// string "ssh-rsa", mpint e, mpint n.
type rsaPublicKey struct {
	E *big.Int
	N *big.Int
}

func parseRSAPublicKey(blob []byte) (*rsaPublicKey, error) {
	r := newReader(blob)
	algo, err := r.String()
	if err != nil {
		return nil, err
	}
	if string(algo) != hostKeyAlgoSSHRSA {
		return nil, errors.Tracef("ssh: %w: unsupported host key format %q", ErrProtocolViolation, algo)
	}
	e, err := r.MPInt()
	if err != nil {
		return nil, err
	}
	n, err := r.MPInt()
	if err != nil {
		return nil, err
	}
	return &rsaPublicKey{E: e, N: n}, nil
}

// sigSpecs maps a signature algorithm name to the hash it signs over, per
// RFC 4253 section 6.6 (ssh-rsa, SHA-1) and RFC 8332 (rsa-sha2-256/512).
var sigSpecs = map[string]crypto.Hash{
	hostKeyAlgoSSHRSA:    crypto.SHA1,
	hostKeyAlgoRSASHA256: crypto.SHA256,
	hostKeyAlgoRSASHA512: crypto.SHA512,
}

// verifySignature checks sigBlob (string algo, string sig) over data
// using the public key in hostKeyBlob under the negotiated host key
// algorithm.
func verifySignature(hostKeyAlgo string, hostKeyBlob, data, sigBlob []byte) error {
	hashID, ok := sigSpecs[hostKeyAlgo]
	if !ok {
		return errors.Tracef("ssh: %w: unsupported signature algorithm %q", ErrProtocolViolation, hostKeyAlgo)
	}

	pub, err := parseRSAPublicKey(hostKeyBlob)
	if err != nil {
		return err
	}

	r := newReader(sigBlob)
	sigAlgo, err := r.String()
	if err != nil {
		return err
	}
	if string(sigAlgo) != hostKeyAlgo {
		return errors.Tracef("ssh: %w: signature algorithm %q does not match negotiated %q",
			ErrSignatureInvalid, sigAlgo, hostKeyAlgo)
	}
	sig, err := r.String()
	if err != nil {
		return err
	}

	digest := hashData(hashID, data)

	pubKey := &rsa.PublicKey{N: pub.N, E: int(pub.E.Int64())}
	if err := rsa.VerifyPKCS1v15(pubKey, hashID, digest, sig); err != nil {
		return errors.Tracef("ssh: %w: %v", ErrSignatureInvalid, err)
	}
	return nil
}

func hashData(h crypto.Hash, data []byte) []byte {
	switch h {
	case crypto.SHA1:
		sum := sha1.Sum(data)
		return sum[:]
	case crypto.SHA256:
		sum := sha256.Sum256(data)
		return sum[:]
	case crypto.SHA512:
		sum := sha512.Sum512(data)
		return sum[:]
	default:
		panic("ssh: unsupported hash")
	}
}
