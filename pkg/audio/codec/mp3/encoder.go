// Package mp3 provides constant-bitrate MP3 encoding via LAME (cgo).
//
// For go build: requires libmp3lame (pkg-config mp3lame on Linux, Homebrew on
// macOS).
package mp3

/*
#cgo darwin CFLAGS: -I/opt/homebrew/include
#cgo darwin LDFLAGS: -L/opt/homebrew/lib -lmp3lame
#cgo linux pkg-config: mp3lame
#include <lame/lame.h>
#include <stdlib.h>

// Wrapper to handle lame_encode_buffer_interleaved with proper typing
static int lame_encode_interleaved(lame_global_flags* gf, const short* pcm, int num_samples, unsigned char* mp3buf, int mp3buf_size) {
    return lame_encode_buffer_interleaved(gf, (short*)pcm, num_samples, mp3buf, mp3buf_size);
}
*/
import "C"
import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/loopcast/loopcast/pkg/audio/pcm"
)

// FrameSize is the number of samples per channel in one MPEG-1 Layer III
// frame. Encode accepts exactly this many.
const FrameSize = 1152

// Quality is the LAME algorithm quality (0 best, 9 worst).
type Quality int

// Quality presets.
const (
	QualityBest        Quality = 0
	QualityHigh        Quality = 2
	QualityMedium      Quality = 5
	QualityLow         Quality = 7
	QualitySecondWorst Quality = 8
	QualityWorst       Quality = 9

	// DefaultQuality trades fidelity for encode speed, which matters more
	// for live capture.
	DefaultQuality = QualitySecondWorst
)

// Encoder encodes interleaved PCM to a constant-bitrate MP3 stream.
type Encoder struct {
	mu       sync.Mutex
	lame     *C.lame_global_flags // Use pointer for incomplete C type
	format   pcm.Format
	bitrate  Bitrate
	quality  Quality
	closed   bool
	flushed  bool
	mp3buf   []byte
	channels int
}

// EncoderOption configures the encoder.
type EncoderOption func(*Encoder)

// WithQuality sets the algorithm quality.
func WithQuality(q Quality) EncoderOption {
	return func(e *Encoder) {
		e.quality = q
	}
}

// WithBitrate sets the constant bitrate. Callers obtain b from ParseBitrate.
func WithBitrate(b Bitrate) EncoderOption {
	return func(e *Encoder) {
		e.bitrate = b
	}
}

// NewEncoder creates an encoder for the given input format. LAME resamples
// internally if the input rate is not an MPEG rate.
func NewEncoder(format pcm.Format, opts ...EncoderOption) (*Encoder, error) {
	if format.Channels != 1 && format.Channels != 2 {
		return nil, errors.New("mp3: channels must be 1 or 2")
	}
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("mp3: invalid sample rate %d", format.SampleRate)
	}

	e := &Encoder{
		format:   format,
		channels: format.Channels,
		bitrate:  DefaultBitrate,
		quality:  DefaultQuality,
		// LAME recommends 1.25*num_samples + 7200
		mp3buf: make([]byte, FrameSize*5/4+7200),
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := ParseBitrate(int(e.bitrate)); err != nil {
		return nil, err
	}
	if e.quality < QualityBest || e.quality > QualityWorst {
		return nil, fmt.Errorf("mp3: quality must be 0..9, got %d", e.quality)
	}

	lame := C.lame_init()
	if lame == nil {
		return nil, errors.New("mp3: failed to initialize LAME")
	}
	C.lame_set_in_samplerate(lame, C.int(format.SampleRate))
	C.lame_set_num_channels(lame, C.int(format.Channels))
	if format.Channels == 1 {
		C.lame_set_mode(lame, C.MONO)
	} else {
		C.lame_set_mode(lame, C.JOINT_STEREO)
	}
	C.lame_set_VBR(lame, C.vbr_off)
	C.lame_set_brate(lame, C.int(e.bitrate))
	C.lame_set_quality(lame, C.int(e.quality))

	if C.lame_init_params(lame) < 0 {
		C.lame_close(lame)
		return nil, errors.New("mp3: failed to set LAME parameters")
	}
	e.lame = lame
	return e, nil
}

// Encode encodes one frame of FrameSize interleaved samples per channel.
//
// LAME holds back roughly one frame of look-ahead, so early calls may return
// an empty slice. The returned bytes are owned by the caller.
func (e *Encoder) Encode(frame []int16) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.New("mp3: encoder is closed")
	}
	if len(frame) != FrameSize*e.channels {
		return nil, fmt.Errorf("mp3: frame has %d samples, want %d", len(frame), FrameSize*e.channels)
	}

	var encoded C.int
	if e.channels == 2 {
		encoded = C.lame_encode_interleaved(
			e.lame,
			(*C.short)(unsafe.Pointer(&frame[0])),
			C.int(FrameSize),
			(*C.uchar)(unsafe.Pointer(&e.mp3buf[0])),
			C.int(len(e.mp3buf)),
		)
	} else {
		// Mono: use left channel buffer
		encoded = C.lame_encode_buffer(
			e.lame,
			(*C.short)(unsafe.Pointer(&frame[0])),
			nil,
			C.int(FrameSize),
			(*C.uchar)(unsafe.Pointer(&e.mp3buf[0])),
			C.int(len(e.mp3buf)),
		)
	}
	if encoded < 0 {
		return nil, fmt.Errorf("mp3: encode failed (%d)", int(encoded))
	}
	out := make([]byte, int(encoded))
	copy(out, e.mp3buf[:encoded])
	return out, nil
}

// Flush drains LAME's internal buffers. It returns nil after the first call.
func (e *Encoder) Flush() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.flushed {
		return nil, nil
	}
	e.flushed = true

	encoded := C.lame_encode_flush(
		e.lame,
		(*C.uchar)(unsafe.Pointer(&e.mp3buf[0])),
		C.int(len(e.mp3buf)),
	)
	if encoded < 0 {
		return nil, fmt.Errorf("mp3: flush failed (%d)", int(encoded))
	}
	out := make([]byte, int(encoded))
	copy(out, e.mp3buf[:encoded])
	return out, nil
}

// FrameSize returns FrameSize.
func (e *Encoder) FrameSize() int {
	return FrameSize
}

// Format returns the PCM format Encode expects.
func (e *Encoder) Format() pcm.Format {
	return e.format
}

// Bitrate returns the configured bitrate.
func (e *Encoder) Bitrate() Bitrate {
	return e.bitrate
}

// Close releases encoder resources. Call Flush first to keep the tail.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.lame != nil {
		C.lame_close(e.lame)
		e.lame = nil
	}
	return nil
}
