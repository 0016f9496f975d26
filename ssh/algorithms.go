package ssh

import "github.com/ricardo-massaro/eessh/internal/errors"

// Recognized algorithm names.
const (
	kexAlgoDH1SHA1  = "diffie-hellman-group1-sha1"
	kexAlgoDH14SHA1 = "diffie-hellman-group14-sha1"

	hostKeyAlgoSSHRSA      = "ssh-rsa"
	hostKeyAlgoRSASHA256   = "rsa-sha2-256"
	hostKeyAlgoRSASHA512   = "rsa-sha2-512"

	cipherAlgoAES128CBC = "aes128-cbc"
	cipherAlgoAES128CTR = "aes128-ctr"
	cipherAlgoNone      = "none"

	macAlgoHMACSHA256 = "hmac-sha2-256"
	macAlgoHMACSHA512 = "hmac-sha2-512"
	macAlgoNone       = "none"

	compressionAlgoNone = "none"
)

// directionAlgorithms holds the negotiated algorithm for one direction
// (client-to-server or server-to-client) of a single slot family.
type directionAlgorithms struct {
	cipher      string
	mac         string
	compression string
}

// negotiatedAlgorithms is the outcome of KEXINIT negotiation.
type negotiatedAlgorithms struct {
	kex     string
	hostKey string
	w       directionAlgorithms // client -> server
	r       directionAlgorithms // server -> client
}

// firstCommon walks client's preference list in order and returns the
// first name that also appears anywhere in server's list.
func firstCommon(what string, client, server []string) (string, error) {
	for _, c := range client {
		for _, s := range server {
			if c == s {
				return c, nil
			}
		}
	}
	return "", errors.Tracef("ssh: %w: no common %s algorithm (client %v, server %v)",
		ErrNoAlgorithmInCommon, what, client, server)
}

// findAgreedAlgorithms negotiates every slot of a KEXINIT exchange,
// client-first-match-wins.
func findAgreedAlgorithms(clientInit, serverInit *kexInitMsg) (*negotiatedAlgorithms, error) {
	var a negotiatedAlgorithms
	var err error

	if a.kex, err = firstCommon("kex", clientInit.KexAlgos, serverInit.KexAlgos); err != nil {
		return nil, err
	}
	if a.hostKey, err = firstCommon("host key", clientInit.ServerHostKeyAlgos, serverInit.ServerHostKeyAlgos); err != nil {
		return nil, err
	}
	if a.w.cipher, err = firstCommon("cipher c->s", clientInit.CiphersClientServer, serverInit.CiphersClientServer); err != nil {
		return nil, err
	}
	if a.r.cipher, err = firstCommon("cipher s->c", clientInit.CiphersServerClient, serverInit.CiphersServerClient); err != nil {
		return nil, err
	}
	if a.w.mac, err = firstCommon("mac c->s", clientInit.MACsClientServer, serverInit.MACsClientServer); err != nil {
		return nil, err
	}
	if a.r.mac, err = firstCommon("mac s->c", clientInit.MACsServerClient, serverInit.MACsServerClient); err != nil {
		return nil, err
	}
	if a.w.compression, err = firstCommon("compression c->s", clientInit.CompressionClientServer, serverInit.CompressionClientServer); err != nil {
		return nil, err
	}
	if a.r.compression, err = firstCommon("compression s->c", clientInit.CompressionServerClient, serverInit.CompressionServerClient); err != nil {
		return nil, err
	}
	return &a, nil
}
