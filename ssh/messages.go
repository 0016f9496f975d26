package ssh

import (
	"math/big"

	"github.com/ricardo-massaro/eessh/internal/errors"
)

// Message type bytes, the first byte of every SSH payload.
const (
	msgDisconnect    = 1
	msgIgnore        = 2
	msgUnimplemented = 3
	msgDebug         = 4
	msgKexInit       = 20
	msgNewKeys       = 21
	msgKexDHInit     = 30
	msgKexDHReply    = 31
)

// kexInitCookieLen is the length of the random cookie at the start of a
// KEXINIT payload, RFC 4253 section 7.1.
const kexInitCookieLen = 16

// kexInitMsg is the SSH_MSG_KEXINIT payload laid out:
// a cookie followed by ten name-lists in fixed order, a boolean, and a
// reserved uint32.
type kexInitMsg struct {
	Cookie                  [kexInitCookieLen]byte
	KexAlgos                []string
	ServerHostKeyAlgos      []string
	CiphersClientServer     []string
	CiphersServerClient     []string
	MACsClientServer        []string
	MACsServerClient        []string
	CompressionClientServer []string
	CompressionServerClient []string
	LanguagesClientServer   []string
	LanguagesServerClient   []string
	FirstKexPacketFollows   bool
	Reserved                uint32
}

func (m *kexInitMsg) marshal() ([]byte, error) {
	w := newBuffer(0)
	if err := w.WriteUint8(msgKexInit); err != nil {
		return nil, err
	}
	if err := w.WriteRaw(m.Cookie[:]); err != nil {
		return nil, err
	}
	lists := [][]string{
		m.KexAlgos, m.ServerHostKeyAlgos,
		m.CiphersClientServer, m.CiphersServerClient,
		m.MACsClientServer, m.MACsServerClient,
		m.CompressionClientServer, m.CompressionServerClient,
		m.LanguagesClientServer, m.LanguagesServerClient,
	}
	for _, l := range lists {
		if err := w.WriteNameList(l); err != nil {
			return nil, err
		}
	}
	followsByte := byte(0)
	if m.FirstKexPacketFollows {
		followsByte = 1
	}
	if err := w.WriteUint8(followsByte); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(m.Reserved); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func unmarshalKexInit(payload []byte) (*kexInitMsg, error) {
	r := newReader(payload)
	typ, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	if typ != msgKexInit {
		return nil, unexpectedMessageErr(msgKexInit, typ)
	}
	m := &kexInitMsg{}
	cookie, err := r.Bytes(kexInitCookieLen)
	if err != nil {
		return nil, err
	}
	copy(m.Cookie[:], cookie)

	lists := []*[]string{
		&m.KexAlgos, &m.ServerHostKeyAlgos,
		&m.CiphersClientServer, &m.CiphersServerClient,
		&m.MACsClientServer, &m.MACsServerClient,
		&m.CompressionClientServer, &m.CompressionServerClient,
		&m.LanguagesClientServer, &m.LanguagesServerClient,
	}
	for _, l := range lists {
		names, err := r.NameList()
		if err != nil {
			return nil, err
		}
		*l = names
	}
	follows, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	m.FirstKexPacketFollows = follows != 0
	reserved, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	m.Reserved = reserved
	return m, nil
}

// kexDHInitMsg is SSH_MSG_KEXDH_INIT: the client's ephemeral public value.
type kexDHInitMsg struct {
	E *big.Int
}

func (m *kexDHInitMsg) marshal() ([]byte, error) {
	w := newBuffer(0)
	if err := w.WriteUint8(msgKexDHInit); err != nil {
		return nil, err
	}
	if err := w.WriteMPInt(m.E); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// kexDHReplyMsg is SSH_MSG_KEXDH_REPLY: the server's host key, ephemeral
// public value, and signature over the exchange hash.
type kexDHReplyMsg struct {
	HostKey   []byte
	F         *big.Int
	Signature []byte
}

func unmarshalKexDHReply(payload []byte) (*kexDHReplyMsg, error) {
	r := newReader(payload)
	typ, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	if typ != msgKexDHReply {
		return nil, unexpectedMessageErr(msgKexDHReply, typ)
	}
	m := &kexDHReplyMsg{}
	if m.HostKey, err = r.String(); err != nil {
		return nil, err
	}
	if m.F, err = r.MPInt(); err != nil {
		return nil, err
	}
	if m.Signature, err = r.String(); err != nil {
		return nil, err
	}
	return m, nil
}

// disconnectMsg is SSH_MSG_DISCONNECT, sent by the client when it tears
// down the connection after a fatal error.
type disconnectMsg struct {
	Reason  uint32
	Message string
}

func (m *disconnectMsg) marshal() ([]byte, error) {
	w := newBuffer(0)
	if err := w.WriteUint8(msgDisconnect); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(m.Reason); err != nil {
		return nil, err
	}
	if err := w.WriteString([]byte(m.Message)); err != nil {
		return nil, err
	}
	if err := w.WriteString(nil); err != nil { // language tag, unused
		return nil, err
	}
	return w.Bytes(), nil
}

func unexpectedMessageErr(want, got byte) error {
	return errors.Tracef("ssh: %w: expected message %d, got %d", ErrUnexpectedMessage, want, got)
}
