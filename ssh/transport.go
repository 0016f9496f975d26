package ssh

import (
	"bufio"
	"io"

	"github.com/ricardo-massaro/eessh/internal/elog"
	"github.com/ricardo-massaro/eessh/internal/errors"
)

// Transport is the client side of the binary packet protocol plus group
// key exchange. It owns the two independent directional streams and the
// key-exchange state that spans them.
//
// The TCP connect and the version-banner line exchange happen before a
// Transport exists; the caller supplies the raw connection and both
// version strings (with CR LF already stripped) to NewClientTransport.
type Transport struct {
	conn io.ReadWriter
	br   *bufio.Reader

	config *Config
	logger elog.Logger

	clientVersion, serverVersion []byte
	hostAddr                     string

	outgoing *stream
	incoming *stream

	sessionID []byte
}

// NewClientTransport performs the client side of a full key exchange
// over conn and returns a Transport ready to send and receive upper
// layer payloads.
//
// hostAddr identifies the peer for HostIdentityHook purposes (typically
// "host:port"); it is never sent on the wire.
func NewClientTransport(conn io.ReadWriter, clientVersion, serverVersion []byte, cfg *Config, hostAddr string) (*Transport, error) {
	if cfg.HostIdentityHook == nil {
		return nil, errors.Tracef("ssh: %w: Config.HostIdentityHook is nil", ErrProtocolViolation)
	}
	cfg = cfg.withDefaults()
	if cfg.MaxPacketSize > MaxMaxPacketSize {
		return nil, errors.Tracef("ssh: %w: MaxPacketSize %d exceeds %d", ErrProtocolViolation, cfg.MaxPacketSize, MaxMaxPacketSize)
	}
	if len(clientVersion) == 0 {
		clientVersion = []byte(cfg.ClientVersion)
	}

	t := &Transport{
		conn:          conn,
		br:            bufio.NewReader(conn),
		config:        cfg,
		logger:        elog.Default,
		clientVersion: clientVersion,
		serverVersion: serverVersion,
		hostAddr:      hostAddr,
		outgoing:      newStream(cfg.MaxPacketSize),
		incoming:      newStream(cfg.MaxPacketSize),
	}

	if err := t.performKeyExchange(); err != nil {
		t.sendDisconnect(err)
		return nil, err
	}
	return t, nil
}

// Rekey runs a second key exchange over the already-established
// transport, reusing the persisted session_id in key derivation.
func (t *Transport) Rekey() error {
	t.logger.WithFields(elog.Fields{"host": t.hostAddr}).Info("ssh: starting rekey")
	if err := t.performKeyExchange(); err != nil {
		t.sendDisconnect(err)
		return err
	}
	t.logger.WithFields(elog.Fields{"host": t.hostAddr}).Info("ssh: rekey complete")
	return nil
}

// Send frames and writes one upper layer payload.
func (t *Transport) Send(payload []byte) error {
	return t.outgoing.send(t.conn, t.config.Rand, payload)
}

// Recv reads and authenticates exactly one upper layer payload.
func (t *Transport) Recv() ([]byte, error) {
	return t.incoming.recv(t.br)
}

// sendDisconnect best-effort notifies the peer why the connection is
// being torn down. Failure to send it is
// not itself reported; the caller already has the real error.
func (t *Transport) sendDisconnect(cause error) {
	reason := disconnectReasonFor(cause)
	t.logger.WithFields(elog.Fields{
		"reason": reason,
		"error":  cause.Error(),
	}).Warn("ssh: sending disconnect")

	msg := &disconnectMsg{Reason: reason, Message: cause.Error()}
	payload, err := msg.marshal()
	if err != nil {
		return
	}
	_ = t.outgoing.send(t.conn, t.config.Rand, payload)
}

// readIgnorable reads packets from incoming until it finds one that is
// not SSH_MSG_IGNORE, SSH_MSG_DEBUG, or SSH_MSG_UNIMPLEMENTED; those
// three are transparently skipped during key exchange.
func (t *Transport) readIgnorable() ([]byte, error) {
	for {
		payload, err := t.incoming.recv(t.br)
		if err != nil {
			return nil, err
		}
		if len(payload) == 0 {
			return nil, errors.Tracef("ssh: %w: empty payload", ErrMalformed)
		}
		switch payload[0] {
		case msgIgnore, msgDebug, msgUnimplemented:
			continue
		default:
			return payload, nil
		}
	}
}

func (t *Transport) readKexDHReply() (*kexDHReplyMsg, error) {
	payload, err := t.readIgnorable()
	if err != nil {
		return nil, err
	}
	return unmarshalKexDHReply(payload)
}

func (t *Transport) readPeerKexInit() (*kexInitMsg, []byte, error) {
	payload, err := t.readIgnorable()
	if err != nil {
		return nil, nil, err
	}
	m, err := unmarshalKexInit(payload)
	if err != nil {
		return nil, nil, err
	}
	return m, payload, nil
}

func (t *Transport) readNewKeys() error {
	payload, err := t.readIgnorable()
	if err != nil {
		return err
	}
	if len(payload) == 0 || payload[0] != msgNewKeys {
		return unexpectedMessageErr(msgNewKeys, safeFirstByte(payload))
	}
	return nil
}

func safeFirstByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// performKeyExchange runs one full KEXINIT + DH exchange + NEWKEYS
// round. It is used both for the
// initial handshake and for rekeying; on the initial handshake it also
// fixes session_id.
func (t *Transport) performKeyExchange() error {
	localInit, err := buildKexInitMsg(t.config.Rand, t.config)
	if err != nil {
		return err
	}
	localRaw, err := localInit.marshal()
	if err != nil {
		return err
	}
	if err := t.outgoing.send(t.conn, t.config.Rand, localRaw); err != nil {
		return err
	}

	peerInit, peerRaw, err := t.readPeerKexInit()
	if err != nil {
		return err
	}

	algos, err := findAgreedAlgorithms(localInit, peerInit)
	if err != nil {
		return err
	}

	group, ok := lookupDHGroup(algos.kex)
	if !ok {
		return errors.Tracef("ssh: %w: unsupported kex algorithm %q", ErrProtocolViolation, algos.kex)
	}

	t.logger.WithFields(elog.Fields{
		"kex":       algos.kex,
		"hostKey":   algos.hostKey,
		"cipherOut": algos.w.cipher,
		"cipherIn":  algos.r.cipher,
		"macOut":    algos.w.mac,
		"macIn":     algos.r.mac,
	}).Debug("ssh: negotiated algorithms")

	magics := &handshakeMagics{
		clientVersion: t.clientVersion,
		serverVersion: t.serverVersion,
		clientKexInit: localRaw,
		serverKexInit: peerRaw,
	}

	result, err := runDHExchange(t, group, magics)
	if err != nil {
		return err
	}

	if err := verifySignature(algos.hostKey, result.HostKey, result.H, result.Signature); err != nil {
		return err
	}

	decision, err := t.config.HostIdentityHook.Check(t.hostAddr, algos.hostKey, result.HostKey)
	if err != nil {
		return errors.Tracef("ssh: %w: %v", ErrUntrustedHost, err)
	}
	if decision == HostKeyReject {
		return errors.Tracef("ssh: %w: host key rejected for %s", ErrUntrustedHost, t.hostAddr)
	}

	firstKex := t.sessionID == nil
	if firstKex {
		t.sessionID = result.H
	}

	keys, err := deriveSessionKeys(group.hash.New, algos, result.K, result.H, t.sessionID)
	if err != nil {
		return err
	}

	outCipher, err := newCipherState(algos.w.cipher, dirEncrypt, keys.keyClientToServer, keys.ivClientToServer)
	if err != nil {
		return err
	}
	outMAC, err := newMACState(algos.w.mac, keys.macKeyClientToServer)
	if err != nil {
		return err
	}

	newKeysPayload := []byte{msgNewKeys}
	if err := t.outgoing.send(t.conn, t.config.Rand, newKeysPayload); err != nil {
		return err
	}
	t.outgoing.installKeys(outCipher, outMAC)
	t.logger.WithFields(elog.Fields{"direction": "outgoing"}).Debug("ssh: NEWKEYS installed")

	if err := t.readNewKeys(); err != nil {
		return err
	}

	inCipher, err := newCipherState(algos.r.cipher, dirDecrypt, keys.keyServerToClient, keys.ivServerToClient)
	if err != nil {
		return err
	}
	inMAC, err := newMACState(algos.r.mac, keys.macKeyServerToClient)
	if err != nil {
		return err
	}
	t.incoming.installKeys(inCipher, inMAC)
	t.logger.WithFields(elog.Fields{"direction": "incoming"}).Debug("ssh: NEWKEYS installed")

	return nil
}
