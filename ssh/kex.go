package ssh

import (
	"encoding/binary"
	"hash"
	"io"
	"math/big"

	"github.com/ricardo-massaro/eessh/internal/errors"
)

// handshakeMagics holds the four values that are always included in the
// exchange hash alongside the DH outputs.
type handshakeMagics struct {
	clientVersion, serverVersion []byte
	clientKexInit, serverKexInit []byte
}

func writeStringTo(w io.Writer, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	w.Write(lenBuf[:])
	w.Write(b)
}

func writeMPIntTo(w io.Writer, n *big.Int) {
	writeStringTo(w, mpintBytes(n))
}

func (m *handshakeMagics) write(w io.Writer) {
	writeStringTo(w, m.clientVersion)
	writeStringTo(w, m.serverVersion)
	writeStringTo(w, m.clientKexInit)
	writeStringTo(w, m.serverKexInit)
}

// kexResult is the outcome of one DH exchange.
type kexResult struct {
	H         []byte
	K         *big.Int
	HostKey   []byte
	Signature []byte
}

// computeExchangeHash computes H = Hash(V_C‖V_S‖I_C‖I_S‖K_S‖e‖f‖K), per
// RFC 4253 section 8.
func computeExchangeHash(newHash func() hash.Hash, magics *handshakeMagics, hostKeyBlob []byte, e, f, K *big.Int) []byte {
	h := newHash()
	magics.write(h)
	writeStringTo(h, hostKeyBlob)
	writeMPIntTo(h, e)
	writeMPIntTo(h, f)
	writeMPIntTo(h, K)
	return h.Sum(nil)
}

// buildKexInitMsg constructs this side's KEXINIT payload from the
// configured algorithm preferences.
func buildKexInitMsg(randSource io.Reader, cfg *Config) (*kexInitMsg, error) {
	m := &kexInitMsg{
		KexAlgos:                cfg.PreferredKEX,
		ServerHostKeyAlgos:      cfg.PreferredHostKeyAlgos,
		CiphersClientServer:     cfg.PreferredCiphers,
		CiphersServerClient:     cfg.PreferredCiphers,
		MACsClientServer:        cfg.PreferredMACs,
		MACsServerClient:        cfg.PreferredMACs,
		CompressionClientServer: []string{compressionAlgoNone},
		CompressionServerClient: []string{compressionAlgoNone},
	}
	if _, err := io.ReadFull(randSource, m.Cookie[:]); err != nil {
		return nil, errors.Tracef("ssh: %w: %v", ErrCryptoFailure, err)
	}
	return m, nil
}

// runDHExchange performs the client side of the DH-group sub-protocol up
// to and including the exchange-hash computation. It stops short of
// signature verification and the host identity check, which the caller
// does once it has also resolved the negotiated host key algorithm.
func runDHExchange(t *Transport, group *dhGroup, magics *handshakeMagics) (*kexResult, error) {
	e, x, err := group.keyPair(t.config.Rand)
	if err != nil {
		return nil, err
	}

	initMsg := &kexDHInitMsg{E: e}
	payload, err := initMsg.marshal()
	if err != nil {
		return nil, err
	}
	if err := t.outgoing.send(t.conn, t.config.Rand, payload); err != nil {
		return nil, err
	}

	reply, err := t.readKexDHReply()
	if err != nil {
		return nil, err
	}

	if err := group.validatePeerPublic(reply.F); err != nil {
		return nil, err
	}

	K := group.sharedSecret(reply.F, x)
	H := computeExchangeHash(group.hash.New, magics, reply.HostKey, e, reply.F, K)

	return &kexResult{H: H, K: K, HostKey: reply.HostKey, Signature: reply.Signature}, nil
}

// kdfLabel identifies one of the six session key material outputs
// derived per RFC 4253 section 7.2.
type kdfLabel byte

const (
	kdfIVClientToServer  kdfLabel = 'A'
	kdfIVServerToClient  kdfLabel = 'B'
	kdfKeyClientToServer kdfLabel = 'C'
	kdfKeyServerToClient kdfLabel = 'D'
	kdfMACClientToServer kdfLabel = 'E'
	kdfMACServerToClient kdfLabel = 'F'
)

// deriveKeyMaterial expands K and H into `length` bytes of key material
// for the given label, per RFC 4253 section 7.2:
//
//	K1 = Hash(K‖H‖X‖session_id); Ki = Hash(K‖H‖K1‖...‖Ki-1)
func deriveKeyMaterial(newHash func() hash.Hash, K *big.Int, H, sessionID []byte, label kdfLabel, length int) []byte {
	var result []byte
	for len(result) < length {
		h := newHash()
		writeMPIntTo(h, K)
		h.Write(H)
		if len(result) == 0 {
			h.Write([]byte{byte(label)})
			h.Write(sessionID)
		} else {
			h.Write(result)
		}
		result = append(result, h.Sum(nil)...)
	}
	return result[:length]
}

// sessionKeys holds every key derived for one completed key exchange,
// ready to install on the two stream directions via installKeys.
type sessionKeys struct {
	ivClientToServer, ivServerToClient     []byte
	keyClientToServer, keyServerToClient   []byte
	macKeyClientToServer, macKeyServerToClient []byte
}

func deriveSessionKeys(newHash func() hash.Hash, algos *negotiatedAlgorithms, K *big.Int, H, sessionID []byte) (*sessionKeys, error) {
	wCipher, ok := lookupCipherSpec(algos.w.cipher)
	if !ok {
		return nil, errors.Tracef("ssh: %w: unknown cipher %q", ErrProtocolViolation, algos.w.cipher)
	}
	rCipher, ok := lookupCipherSpec(algos.r.cipher)
	if !ok {
		return nil, errors.Tracef("ssh: %w: unknown cipher %q", ErrProtocolViolation, algos.r.cipher)
	}
	wMAC, ok := lookupMACSpec(algos.w.mac)
	if !ok {
		return nil, errors.Tracef("ssh: %w: unknown mac %q", ErrProtocolViolation, algos.w.mac)
	}
	rMAC, ok := lookupMACSpec(algos.r.mac)
	if !ok {
		return nil, errors.Tracef("ssh: %w: unknown mac %q", ErrProtocolViolation, algos.r.mac)
	}

	return &sessionKeys{
		ivClientToServer:           deriveKeyMaterial(newHash, K, H, sessionID, kdfIVClientToServer, wCipher.ivLen),
		ivServerToClient:           deriveKeyMaterial(newHash, K, H, sessionID, kdfIVServerToClient, rCipher.ivLen),
		keyClientToServer:          deriveKeyMaterial(newHash, K, H, sessionID, kdfKeyClientToServer, wCipher.keyLen),
		keyServerToClient:          deriveKeyMaterial(newHash, K, H, sessionID, kdfKeyServerToClient, rCipher.keyLen),
		macKeyClientToServer:       deriveKeyMaterial(newHash, K, H, sessionID, kdfMACClientToServer, wMAC.keyLen),
		macKeyServerToClient:       deriveKeyMaterial(newHash, K, H, sessionID, kdfMACServerToClient, rMAC.keyLen),
	}, nil
}
