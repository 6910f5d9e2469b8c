// Package wsframe implements the server side of the WebSocket protocol
// (RFC 6455) needed to push binary messages to browsers: the opening
// handshake, unmasked server frames, and a reader for masked client frames.
//
// Only unfragmented messages are produced. Extensions and subprotocols are
// not negotiated.
package wsframe

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Opcode identifies a frame type.
type Opcode byte

// Frame opcodes.
const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// IsControl reports whether op is a control opcode.
func (op Opcode) IsControl() bool {
	return op&0x8 != 0
}

func (op Opcode) String() string {
	switch op {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	}
	return fmt.Sprintf("opcode(%#x)", byte(op))
}

// GUID is the fixed value appended to a client key to derive the accept
// value.
const GUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// MaxHeaderSize is the largest frame header this package writes or reads.
const MaxHeaderSize = 14

// MaxReadPayload bounds the payload of frames accepted from clients.
const MaxReadPayload = 1 << 20

var (
	// ErrFrameTooLarge is returned for a client frame over MaxReadPayload.
	ErrFrameTooLarge = errors.New("wsframe: frame too large")
	// ErrUnmasked is returned for a client frame without a mask.
	ErrUnmasked = errors.New("wsframe: client frame not masked")
	// ErrBadControl is returned for a fragmented or oversized control frame.
	ErrBadControl = errors.New("wsframe: malformed control frame")
)

// AcceptKey derives the Sec-WebSocket-Accept value for a client key.
func AcceptKey(key string) string {
	h := sha1.New()
	io.WriteString(h, key)
	io.WriteString(h, GUID)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// AppendHeader appends a final, unmasked frame header for a payload of n
// bytes.
func AppendHeader(dst []byte, op Opcode, n int) []byte {
	dst = append(dst, 0x80|byte(op))
	switch {
	case n <= 125:
		return append(dst, byte(n))
	case n <= 0xFFFF:
		dst = append(dst, 126)
		return binary.BigEndian.AppendUint16(dst, uint16(n))
	default:
		dst = append(dst, 127)
		return binary.BigEndian.AppendUint64(dst, uint64(n))
	}
}

// AppendFrame appends a complete final, unmasked frame.
func AppendFrame(dst []byte, op Opcode, payload []byte) []byte {
	dst = AppendHeader(dst, op, len(payload))
	return append(dst, payload...)
}

// WriteFrame writes a final, unmasked frame to w.
func WriteFrame(w io.Writer, op Opcode, payload []byte) error {
	var hdr [MaxHeaderSize]byte
	if _, err := w.Write(AppendHeader(hdr[:0], op, len(payload))); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// Frame is a decoded frame.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Payload []byte
}

// ReadFrame reads one client frame and unmasks its payload.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [MaxHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:2]); err != nil {
		return Frame{}, err
	}
	f := Frame{
		Fin:    hdr[0]&0x80 != 0,
		Opcode: Opcode(hdr[0] & 0x0F),
	}
	masked := hdr[1]&0x80 != 0
	n := uint64(hdr[1] & 0x7F)

	switch n {
	case 126:
		if _, err := io.ReadFull(r, hdr[2:4]); err != nil {
			return Frame{}, unexpected(err)
		}
		n = uint64(binary.BigEndian.Uint16(hdr[2:4]))
	case 127:
		if _, err := io.ReadFull(r, hdr[2:10]); err != nil {
			return Frame{}, unexpected(err)
		}
		n = binary.BigEndian.Uint64(hdr[2:10])
	}

	if f.Opcode.IsControl() && (!f.Fin || n > 125) {
		return Frame{}, ErrBadControl
	}
	if !masked {
		return Frame{}, ErrUnmasked
	}
	if n > MaxReadPayload {
		return Frame{}, ErrFrameTooLarge
	}

	var mask [4]byte
	if _, err := io.ReadFull(r, mask[:]); err != nil {
		return Frame{}, unexpected(err)
	}
	f.Payload = make([]byte, n)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return Frame{}, unexpected(err)
	}
	for i := range f.Payload {
		f.Payload[i] ^= mask[i&3]
	}
	return f, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ClosePayload builds a close frame body carrying a status code.
func ClosePayload(code uint16, reason string) []byte {
	b := binary.BigEndian.AppendUint16(nil, code)
	return append(b, reason...)
}

// Close status codes.
const (
	CloseNormal        uint16 = 1000
	CloseGoingAway     uint16 = 1001
	CloseProtocolError uint16 = 1002
	CloseMessageTooBig uint16 = 1009
)
