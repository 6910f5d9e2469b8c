package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
)

/*
ref: https://tools.ietf.org/html/rfc7845.html

	Page 0         Page 1              Pages 2 ...

+------------+ +-----------------+ +-------------------+ +--
||ID Header || ||Comment Header || ||Audio Data Packet| | ...
+------------+ +-----------------+ +-------------------+ +--
^
'Beginning Of Stream'
*/

const (
	idSignature      = "OpusHead"
	commentSignature = "OpusTags"

	// PreSkip is the number of 48 kHz samples a decoder discards at the
	// start of every stream.
	PreSkip = 312

	// Vendor is written into every OpusTags header.
	Vendor = "loopcast"
)

// OpusHead returns the 19-byte identification header for a channel-mapping
// family 0 stream.
func OpusHead(channels int, inputSampleRate uint32) []byte {
	head := make([]byte, 19)
	copy(head[0:], idSignature)
	head[8] = 1 // version
	head[9] = byte(channels)
	binary.LittleEndian.PutUint16(head[10:], PreSkip)
	binary.LittleEndian.PutUint32(head[12:], inputSampleRate)
	// Output gain (bytes 16-17) stays zero, as does the mapping family at
	// byte 18: family 0 is a single mono or stereo stream.
	return head
}

// OpusTags returns a comment header carrying vendor and no user comments.
func OpusTags(vendor string) []byte {
	tags := make([]byte, 8+4+len(vendor)+4)
	copy(tags[0:], commentSignature)
	binary.LittleEndian.PutUint32(tags[8:], uint32(len(vendor)))
	copy(tags[12:], vendor)
	binary.LittleEndian.PutUint32(tags[12+len(vendor):], 0)
	return tags
}

// OpusHeadInfo is the decoded content of an OpusHead packet.
type OpusHeadInfo struct {
	Version         byte
	Channels        int
	PreSkip         uint16
	InputSampleRate uint32
	OutputGain      int16
	MappingFamily   byte
}

var errNotOpusHead = errors.New("ogg: not an OpusHead packet")

// ParseOpusHead decodes an identification header.
func ParseOpusHead(b []byte) (OpusHeadInfo, error) {
	if len(b) < 19 || string(b[:8]) != idSignature {
		return OpusHeadInfo{}, errNotOpusHead
	}
	return OpusHeadInfo{
		Version:         b[8],
		Channels:        int(b[9]),
		PreSkip:         binary.LittleEndian.Uint16(b[10:]),
		InputSampleRate: binary.LittleEndian.Uint32(b[12:]),
		OutputGain:      int16(binary.LittleEndian.Uint16(b[16:])),
		MappingFamily:   b[18],
	}, nil
}

// ParseOpusTags decodes a comment header and returns its vendor string and
// user comments.
func ParseOpusTags(b []byte) (vendor string, comments []string, err error) {
	if len(b) < 16 || string(b[:8]) != commentSignature {
		return "", nil, fmt.Errorf("ogg: not an OpusTags packet")
	}
	n := int(binary.LittleEndian.Uint32(b[8:]))
	if len(b) < 12+n+4 {
		return "", nil, ErrShortPage
	}
	vendor = string(b[12 : 12+n])
	b = b[12+n:]
	count := int(binary.LittleEndian.Uint32(b))
	b = b[4:]
	for i := 0; i < count; i++ {
		if len(b) < 4 {
			return "", nil, ErrShortPage
		}
		l := int(binary.LittleEndian.Uint32(b))
		if len(b) < 4+l {
			return "", nil, ErrShortPage
		}
		comments = append(comments, string(b[4:4+l]))
		b = b[4+l:]
	}
	return vendor, comments, nil
}

// OpusStream frames Opus packets into one Ogg logical stream.
//
// Each listener owns its own OpusStream, so granule and sequence always
// start from zero for that listener. An OpusStream is not safe for
// concurrent use.
type OpusStream struct {
	serial          uint32
	channels        int
	inputSampleRate uint32

	sequence uint32
	granule  uint64
}

// NewOpusStream returns a stream with the given serial. inputSampleRate is
// informational and recorded in OpusHead.
func NewOpusStream(serial uint32, channels int, inputSampleRate int) *OpusStream {
	return &OpusStream{
		serial:          serial,
		channels:        channels,
		inputSampleRate: uint32(inputSampleRate),
	}
}

// Serial returns the stream serial.
func (s *OpusStream) Serial() uint32 {
	return s.serial
}

// Granule returns the granule position of the last page produced.
func (s *OpusStream) Granule() uint64 {
	return s.granule
}

// Headers returns the two header pages: OpusHead flagged beginning-of-stream
// with sequence 0, then OpusTags with sequence 1. Both carry granule 0. It
// must be called once, before the first Packet.
func (s *OpusStream) Headers() ([]byte, error) {
	if s.sequence != 0 {
		return nil, fmt.Errorf("ogg: headers already written for serial %08x", s.serial)
	}
	head, err := BuildPage(OpusHead(s.channels, s.inputSampleRate), FlagBOS, 0, s.serial, 0)
	if err != nil {
		return nil, err
	}
	tags, err := BuildPage(OpusTags(Vendor), 0, 0, s.serial, 1)
	if err != nil {
		return nil, err
	}
	s.sequence = 2
	out := make([]byte, 0, len(head)+len(tags))
	out = append(out, head...)
	return append(out, tags...), nil
}

// Packet returns one data page for packet, advancing the granule position
// by samples (48 kHz samples per channel).
func (s *OpusStream) Packet(packet []byte, samples int) ([]byte, error) {
	if s.sequence < 2 {
		return nil, fmt.Errorf("ogg: packet before headers for serial %08x", s.serial)
	}
	page, err := BuildPage(packet, 0, s.granule+uint64(samples), s.serial, s.sequence)
	if err != nil {
		return nil, err
	}
	s.granule += uint64(samples)
	s.sequence++
	return page, nil
}
