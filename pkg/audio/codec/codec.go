// Package codec defines the contract between the PCM pipeline and the frame
// encoders in its subpackages.
package codec

import "github.com/loopcast/loopcast/pkg/audio/pcm"

// Encoder compresses fixed-size PCM frames.
//
// Encode is called with exactly FrameSize()*Format().Channels interleaved
// samples. It may return an empty slice when the codec is still filling its
// look-ahead.
type Encoder interface {
	Encode(frame []int16) ([]byte, error)
	FrameSize() int
	Format() pcm.Format
	Close() error
}

// Flusher is implemented by encoders that hold buffered output which must be
// drained at end of stream.
type Flusher interface {
	Flush() ([]byte, error)
}

// Packet is one unit of compressed output.
//
// Data is shared read-only between every consumer once published.
type Packet struct {
	// Index is the ordinal of the packet within its stream, from 0.
	Index uint64
	// Data is the compressed payload.
	Data []byte
	// Samples is the number of samples per channel the packet represents,
	// at the codec's sample rate.
	Samples int
}
