package ogg

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// ParsePage decodes the page at the start of b and returns it along with the
// number of bytes it occupied. The checksum is verified. Payload and
// Segments alias b.
func ParsePage(b []byte) (*Page, int, error) {
	if len(b) < HeaderSize {
		return nil, 0, ErrShortPage
	}
	if string(b[:4]) != capturePattern {
		return nil, 0, ErrCapturePattern
	}
	if b[4] != 0 {
		return nil, 0, fmt.Errorf("%w: %d", ErrVersion, b[4])
	}
	nsegs := int(b[26])
	if len(b) < HeaderSize+nsegs {
		return nil, 0, ErrShortPage
	}
	segs := b[HeaderSize : HeaderSize+nsegs]
	size := 0
	for _, s := range segs {
		size += int(s)
	}
	total := HeaderSize + nsegs + size
	if len(b) < total {
		return nil, 0, ErrShortPage
	}

	want := binary.LittleEndian.Uint32(b[22:26])
	var zero [4]byte
	crc := updateChecksum(0, b[:22])
	crc = updateChecksum(crc, zero[:])
	crc = updateChecksum(crc, b[26:total])
	if crc != want {
		return nil, 0, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, crc, want)
	}

	return &Page{
		Flags:    b[5],
		Granule:  binary.LittleEndian.Uint64(b[6:14]),
		Serial:   binary.LittleEndian.Uint32(b[14:18]),
		Sequence: binary.LittleEndian.Uint32(b[18:22]),
		Segments: segs,
		Payload:  b[HeaderSize+nsegs : total],
	}, total, nil
}

// Reader reads successive pages from a byte stream.
type Reader struct {
	r   *bufio.Reader
	buf []byte
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadPage reads and verifies the next page. It returns io.EOF at a clean
// page boundary and io.ErrUnexpectedEOF inside a page. The returned page
// stays valid until the next call.
func (r *Reader) ReadPage() (*Page, error) {
	head, err := r.r.Peek(HeaderSize)
	if err != nil {
		if err == io.EOF && len(head) == 0 {
			return nil, io.EOF
		}
		return nil, io.ErrUnexpectedEOF
	}
	if string(head[:4]) != capturePattern {
		return nil, ErrCapturePattern
	}
	nsegs := int(head[26])
	full, err := r.r.Peek(HeaderSize + nsegs)
	if err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	size := HeaderSize + nsegs
	for _, s := range full[HeaderSize:] {
		size += int(s)
	}

	if cap(r.buf) < size {
		r.buf = make([]byte, size)
	}
	r.buf = r.buf[:size]
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	p, _, err := ParsePage(r.buf)
	return p, err
}
