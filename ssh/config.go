package ssh

import (
	"crypto/rand"
	"io"
)

// DefaultMaxPacketSize is the packet_length ceiling used when Config
// does not set one.
const DefaultMaxPacketSize = 65536

// MaxMaxPacketSize is the hard upper bound a Config may request.
const MaxMaxPacketSize = 262144

// HostKeyDecision is the outcome of consulting a HostIdentityHook over a
// server's host key.
type HostKeyDecision int

const (
	// HostKeyReject tears the connection down with
	// disconnectHostKeyNotVerifiable.
	HostKeyReject HostKeyDecision = iota
	// HostKeyAccept proceeds without updating any persisted record.
	HostKeyAccept
	// HostKeyAcceptAndRemember proceeds like HostKeyAccept; it reports
	// that the hook itself has recorded the key for future connections.
	HostKeyAcceptAndRemember
)

// HostIdentityHook is consulted once per completed key exchange with the
// server's host key. Implementations must treat a
// previously unseen host differently from a host whose stored key
// changed; the latter is the case that protects against interposition.
type HostIdentityHook interface {
	Check(addr, hostKeyAlgo string, hostKeyBlob []byte) (HostKeyDecision, error)
}

// AcceptAnyHostKey is a HostIdentityHook that never rejects, for use in
// tests and in callers that perform their own out-of-band verification.
// It must not be the default for a Config used against a real network
// peer.
type AcceptAnyHostKey struct{}

func (AcceptAnyHostKey) Check(addr, hostKeyAlgo string, hostKeyBlob []byte) (HostKeyDecision, error) {
	return HostKeyAccept, nil
}

// Config holds the algorithm preferences and policy knobs for a client
// transport.
type Config struct {
	// PreferredKEX, in client-preference order. Defaults to
	// [group14-sha1, group1-sha1].
	PreferredKEX []string

	// PreferredCiphers, in client-preference order, used for both
	// directions. Defaults to [aes128-ctr, aes128-cbc].
	PreferredCiphers []string

	// PreferredMACs, in client-preference order, used for both
	// directions. Defaults to [hmac-sha2-256, hmac-sha2-512].
	PreferredMACs []string

	// PreferredHostKeyAlgos, in client-preference order. Defaults to
	// [rsa-sha2-512, rsa-sha2-256, ssh-rsa].
	PreferredHostKeyAlgos []string

	// MaxPacketSize bounds packet_length on both directions. Defaults to
	// DefaultMaxPacketSize; values above MaxMaxPacketSize are an error
	// the caller should catch before dialing, not silently clamped.
	MaxPacketSize int

	// HostIdentityHook is consulted after every key exchange. A nil hook
	// is a configuration error: the transport will not guess a policy on
	// the caller's behalf.
	HostIdentityHook HostIdentityHook

	// Rand is the source of cryptographic randomness used for ephemeral
	// DH keys and record padding. Defaults to crypto/rand.Reader. It
	// must be safe for concurrent use, since a rekey can be triggered
	// while the previous epoch's traffic is still flowing.
	Rand io.Reader

	// ClientVersion is this client's identification string, RFC 4253
	// section 4.2, excluding the trailing CR LF. Defaults to
	// "SSH-2.0-eessh".
	ClientVersion string
}

// DefaultClientVersion is used when Config.ClientVersion is empty.
const DefaultClientVersion = "SSH-2.0-eessh"

// withDefaults returns a copy of cfg with every unset field replaced by
// its documented default. It does not mutate cfg.
func (cfg *Config) withDefaults() *Config {
	out := *cfg
	if len(out.PreferredKEX) == 0 {
		out.PreferredKEX = []string{kexAlgoDH14SHA1, kexAlgoDH1SHA1}
	}
	if len(out.PreferredCiphers) == 0 {
		out.PreferredCiphers = []string{cipherAlgoAES128CTR, cipherAlgoAES128CBC}
	}
	if len(out.PreferredMACs) == 0 {
		out.PreferredMACs = []string{macAlgoHMACSHA256, macAlgoHMACSHA512}
	}
	if len(out.PreferredHostKeyAlgos) == 0 {
		out.PreferredHostKeyAlgos = []string{hostKeyAlgoRSASHA512, hostKeyAlgoRSASHA256, hostKeyAlgoSSHRSA}
	}
	if out.MaxPacketSize == 0 {
		out.MaxPacketSize = DefaultMaxPacketSize
	}
	if out.Rand == nil {
		out.Rand = rand.Reader
	}
	if out.ClientVersion == "" {
		out.ClientVersion = DefaultClientVersion
	}
	return &out
}
