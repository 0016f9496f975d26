package ssh

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/ricardo-massaro/eessh/internal/errors"
)

// minPadding is the minimum padding length, RFC 4253 section 6.
const minPadding = 4

// stream is the directional state for one half of a connection (either
// client-to-server or server-to-client). The two directions never share state.
type stream struct {
	seqNum        uint32
	cipher        *cipherState
	mac           *macState
	maxPacketSize int

	// Scratch buffers, reused across packets to avoid per-packet
	// allocation on the hot path. plainBuf holds the record send is
	// currently building. cipherBuf holds send's ciphertext output on
	// the way out, and doubles as recv's raw/decrypted record staging
	// area on the way in; a stream only ever does one or the other.
	plainBuf  *buffer
	cipherBuf []byte
}

func newStream(maxPacketSize int) *stream {
	none, _ := newCipherState(cipherAlgoNone, dirEncrypt, nil, nil)
	noneMAC, _ := newMACState(macAlgoNone, nil)
	return &stream{
		cipher:        none,
		mac:           noneMAC,
		maxPacketSize: maxPacketSize,
		plainBuf:      newBuffer(maxPacketSize + 256),
	}
}

// installKeys atomically replaces this direction's cipher and MAC: the
// old state is simply dropped and the new one takes over as a single
// assignment, with no window in which a partially-updated state is
// observable.
func (s *stream) installKeys(cipher *cipherState, mac *macState) {
	s.cipher = cipher
	s.mac = mac
}

// computePadding returns the padding length for a payload of the given
// size.
func computePadding(payloadLen, blockLen int) int {
	b := alignBlockLen(blockLen)
	l := 4 + 1 + payloadLen
	pad := b - (l % b)
	if pad < minPadding {
		pad += b
	}
	return pad
}

// newPacket resets the stream's owned plaintext buffer and reserves the
// packet_length and padding_length slots at its head, returning the
// buffer so a message type can marshal its fields directly into the
// eventual wire record rather than building a separate buffer for
// sendPacket to copy from.
func (s *stream) newPacket() *buffer {
	s.plainBuf.reset()
	s.plainBuf.WriteUint32(0)
	s.plainBuf.WriteUint8(0)
	return s.plainBuf
}

// sendPacket finishes framing the message written into buf, which must
// be the buffer last returned by newPacket: it fills in packet_length
// and padding_length, appends padding, computes the MAC, encrypts, and
// writes the resulting record to w.
func (s *stream) sendPacket(w io.Writer, randSource io.Reader, buf *buffer) error {
	payloadLen := buf.Len() - 5
	padLen := computePadding(payloadLen, s.cipher.blockLen())
	packetLen := 1 + payloadLen + padLen
	if packetLen < 1 || packetLen > s.maxPacketSize {
		return errors.Tracef("ssh: %w: packet_length %d out of range", ErrOversizedPacket, packetLen)
	}

	padding := make([]byte, padLen)
	if s.cipher.spec.name == cipherAlgoNone {
		for i := range padding {
			padding[i] = 0xff
		}
	} else {
		if _, err := io.ReadFull(randSource, padding); err != nil {
			return errors.Tracef("ssh: %w: %v", ErrCryptoFailure, err)
		}
	}
	if err := buf.WriteRaw(padding); err != nil {
		return err
	}

	record := buf.Bytes()
	binary.BigEndian.PutUint32(record[0:4], uint32(packetLen))
	record[4] = byte(padLen)

	var macTag []byte
	if s.mac.spec.name != macAlgoNone {
		macTag = s.mac.compute(s.seqNum, record)
	}

	if cap(s.cipherBuf) < len(record) {
		s.cipherBuf = make([]byte, len(record))
	}
	s.cipherBuf = s.cipherBuf[:len(record)]
	s.cipher.crypt(s.cipherBuf, record)

	if _, err := w.Write(s.cipherBuf); err != nil {
		return errors.Tracef("ssh: %w: %v", ErrIo, err)
	}
	if macTag != nil {
		if _, err := w.Write(macTag); err != nil {
			return errors.Tracef("ssh: %w: %v", ErrIo, err)
		}
	}

	s.seqNum++
	return nil
}

// send frames payload into a new packet and writes it to w. It is a
// convenience wrapper over newPacket/sendPacket for callers that already
// have a complete payload rather than building one incrementally.
func (s *stream) send(w io.Writer, randSource io.Reader, payload []byte) error {
	buf := s.newPacket()
	if err := buf.WriteRaw(payload); err != nil {
		return err
	}
	return s.sendPacket(w, randSource, buf)
}

// recv reads and authenticates exactly one record from r. r should be a
// *bufio.Reader (or any io.Reader already wrapped in one) so that bytes
// read past this record's end are retained for the next call.
//
// The raw/decrypted record is staged in s.cipherBuf, grown only when a
// packet outgrows its current capacity and otherwise reused across
// calls. Only the returned payload is freshly allocated, since callers
// are free to retain it past the next call to recv.
func (s *stream) recv(r *bufio.Reader) ([]byte, error) {
	blockLen := alignBlockLen(s.cipher.blockLen())

	if cap(s.cipherBuf) < blockLen {
		s.cipherBuf = make([]byte, blockLen)
	}
	firstBlock := s.cipherBuf[:blockLen]
	if _, err := io.ReadFull(r, firstBlock); err != nil {
		return nil, errors.Tracef("ssh: %w: %v", ErrIo, err)
	}
	s.cipher.crypt(firstBlock, firstBlock)

	packetLen := binary.BigEndian.Uint32(firstBlock[:4])
	if packetLen == 0 || int(packetLen) > s.maxPacketSize {
		return nil, errors.Tracef("ssh: %w: packet_length %d", ErrOversizedPacket, packetLen)
	}

	recordLen := 4 + int(packetLen)
	if recordLen%blockLen != 0 {
		return nil, errors.Tracef("ssh: %w: packet not block aligned", ErrBadPadding)
	}
	macLen := s.mac.size()
	total := recordLen + macLen

	if cap(s.cipherBuf) < total {
		grown := make([]byte, total)
		copy(grown, firstBlock)
		s.cipherBuf = grown
	}
	s.cipherBuf = s.cipherBuf[:total]

	if _, err := io.ReadFull(r, s.cipherBuf[blockLen:total]); err != nil {
		return nil, errors.Tracef("ssh: %w: %v", ErrIo, err)
	}

	record := s.cipherBuf[:recordLen]
	macTag := s.cipherBuf[recordLen:total]
	s.cipher.crypt(record[blockLen:], record[blockLen:])

	padLen := int(record[4])
	if padLen < minPadding || padLen > int(packetLen)-1 {
		return nil, errors.Tracef("ssh: %w: padding_length %d out of range", ErrBadPadding, padLen)
	}

	if s.mac.spec.name != macAlgoNone {
		if !s.mac.verify(s.seqNum, record, macTag) {
			return nil, errors.Tracef("ssh: %w", ErrBadMac)
		}
	}

	s.seqNum++

	payloadEnd := recordLen - padLen
	payload := make([]byte, payloadEnd-5)
	copy(payload, record[5:payloadEnd])
	return payload, nil
}
