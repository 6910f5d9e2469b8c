// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package ogg builds and parses Ogg pages and frames Opus packets into Ogg
// logical streams (RFC 3533, RFC 7845).
//
// The package is pure Go. Every page is self-contained: one packet per page,
// never continued across pages, which keeps latency at one packet and lets a
// listener join at any page boundary after the two header pages.
package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Header type flags.
const (
	FlagContinued = 0x01
	FlagBOS       = 0x02
	FlagEOS       = 0x04
)

const (
	capturePattern = "OggS"
	// HeaderSize is the length of the fixed page header preceding the
	// segment table.
	HeaderSize = 27
	// MaxSegments is the largest segment table a page can carry.
	MaxSegments = 255
	// MaxPayload is the largest packet that fits in one page while keeping
	// a terminating lacing value.
	MaxPayload = (MaxSegments-1)*255 + 254
)

var (
	ErrCapturePattern  = errors.New("ogg: bad capture pattern")
	ErrVersion         = errors.New("ogg: unsupported stream structure version")
	ErrShortPage       = errors.New("ogg: short page")
	ErrChecksum        = errors.New("ogg: checksum mismatch")
	ErrPayloadTooLarge = errors.New("ogg: payload too large for one page")
)

// Page is a decoded Ogg page.
type Page struct {
	Flags    byte
	Granule  uint64
	Serial   uint32
	Sequence uint32
	Segments []byte
	Payload  []byte
}

// BOS reports whether the beginning-of-stream flag is set.
func (p *Page) BOS() bool { return p.Flags&FlagBOS != 0 }

// EOS reports whether the end-of-stream flag is set.
func (p *Page) EOS() bool { return p.Flags&FlagEOS != 0 }

// SegmentTable returns the lacing values for a packet of n bytes: one 255
// per full 255-byte chunk, then the remainder. The remainder is always
// present, so a packet whose length is a multiple of 255 ends with a zero
// and an empty packet is the single entry [0].
func SegmentTable(n int) []byte {
	segs := make([]byte, n/255+1)
	for i := 0; i < len(segs)-1; i++ {
		segs[i] = 255
	}
	segs[len(segs)-1] = byte(n % 255)
	return segs
}

// BuildPage serialises one page carrying payload as a single complete
// packet. The checksum is computed over the whole page with its own field
// zeroed and then stored little-endian at offset 22.
func BuildPage(payload []byte, flags byte, granule uint64, serial, sequence uint32) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	segs := SegmentTable(len(payload))
	page := make([]byte, HeaderSize+len(segs)+len(payload))

	copy(page[0:], capturePattern)
	page[4] = 0 // stream structure version
	page[5] = flags
	binary.LittleEndian.PutUint64(page[6:], granule)
	binary.LittleEndian.PutUint32(page[14:], serial)
	binary.LittleEndian.PutUint32(page[18:], sequence)
	page[26] = byte(len(segs))
	copy(page[HeaderSize:], segs)
	copy(page[HeaderSize+len(segs):], payload)

	binary.LittleEndian.PutUint32(page[22:], Checksum(page))
	return page, nil
}

var crcTable = makeCRCTable()

func makeCRCTable() *[256]uint32 {
	var table [256]uint32
	const poly = 0x04c11db7

	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ poly
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return &table
}

// Checksum computes the Ogg CRC-32 of b: polynomial 0x04C11DB7, MSB first,
// zero initial value, no final XOR. Callers checksum a page with its CRC
// field zeroed.
func Checksum(b []byte) uint32 {
	return updateChecksum(0, b)
}

func updateChecksum(crc uint32, b []byte) uint32 {
	for _, v := range b {
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^v]
	}
	return crc
}
