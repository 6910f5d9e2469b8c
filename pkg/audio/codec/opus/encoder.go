package opus

// For go build: use pkg-config to find system libopus

/*
#cgo pkg-config: opus
#include <opus.h>
#include <stdlib.h>

// Wrapper functions for variadic opus_encoder_ctl
static int opus_encoder_set_bitrate(OpusEncoder *enc, opus_int32 bitrate) {
    return opus_encoder_ctl(enc, OPUS_SET_BITRATE(bitrate));
}

static int opus_encoder_set_complexity(OpusEncoder *enc, opus_int32 complexity) {
    return opus_encoder_ctl(enc, OPUS_SET_COMPLEXITY(complexity));
}

static int opus_encoder_set_dtx(OpusEncoder *enc, opus_int32 dtx) {
    return opus_encoder_ctl(enc, OPUS_SET_DTX(dtx));
}
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/loopcast/loopcast/pkg/audio/pcm"
)

// SampleRate is the rate every Encoder runs at.
const SampleRate = 48000

// maxPacketSize is the largest packet libopus can produce.
const maxPacketSize = 4000

// Application type constants for encoder initialization.
const (
	// ApplicationVoIP gives best quality at a given bitrate for voice signals.
	ApplicationVoIP = int(C.OPUS_APPLICATION_VOIP)

	// ApplicationAudio gives best quality at a given bitrate for most non-voice signals.
	ApplicationAudio = int(C.OPUS_APPLICATION_AUDIO)

	// ApplicationRestrictedLowdelay configures the minimum possible coding delay.
	ApplicationRestrictedLowdelay = int(C.OPUS_APPLICATION_RESTRICTED_LOWDELAY)
)

// Config configures an Encoder.
type Config struct {
	// Channels is 1 or 2.
	Channels int
	// Bitrate defaults to DefaultBitrate.
	Bitrate Bitrate
	// FrameDuration defaults to Duration10ms.
	FrameDuration FrameDuration
	// Complexity is 0..10 and defaults to 5.
	Complexity int
	// Application defaults to ApplicationRestrictedLowdelay.
	Application int
	// DTX enables discontinuous transmission. Off by default, since a
	// streamed listener expects one packet per frame.
	DTX bool
}

// Encoder wraps a libopus encoder producing fixed-duration packets.
type Encoder struct {
	channels  int
	frameSize int
	buf       []byte

	mu   sync.Mutex
	cEnc *C.OpusEncoder
}

// NewEncoder creates an Encoder from cfg.
func NewEncoder(cfg Config) (*Encoder, error) {
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("opus: channels must be 1 or 2, got %d", cfg.Channels)
	}
	if cfg.Bitrate == 0 {
		cfg.Bitrate = DefaultBitrate
	}
	if _, err := ParseBitrate(int(cfg.Bitrate)); err != nil {
		return nil, err
	}
	if cfg.FrameDuration == 0 {
		cfg.FrameDuration = Duration10ms
	}
	if cfg.FrameDuration.Duration() == 0 {
		return nil, fmt.Errorf("opus: invalid frame duration %d", cfg.FrameDuration)
	}
	if cfg.Complexity == 0 {
		cfg.Complexity = 5
	}
	if cfg.Complexity < 0 || cfg.Complexity > 10 {
		return nil, fmt.Errorf("opus: complexity must be 0..10, got %d", cfg.Complexity)
	}
	if cfg.Application == 0 {
		cfg.Application = ApplicationRestrictedLowdelay
	}

	var cerr C.int
	cEnc := C.opus_encoder_create(C.opus_int32(SampleRate), C.int(cfg.Channels), C.int(cfg.Application), &cerr)
	if cerr != C.OPUS_OK {
		return nil, fmt.Errorf("opus: encoder create failed: %s", C.GoString(C.opus_strerror(cerr)))
	}
	e := &Encoder{
		channels:  cfg.Channels,
		frameSize: cfg.FrameDuration.Samples(),
		buf:       make([]byte, maxPacketSize),
		cEnc:      cEnc,
	}
	if err := e.ctl("set bitrate", C.opus_encoder_set_bitrate(cEnc, C.opus_int32(cfg.Bitrate.BitsPerSecond()))); err != nil {
		e.Close()
		return nil, err
	}
	if err := e.ctl("set complexity", C.opus_encoder_set_complexity(cEnc, C.opus_int32(cfg.Complexity))); err != nil {
		e.Close()
		return nil, err
	}
	dtx := 0
	if cfg.DTX {
		dtx = 1
	}
	if err := e.ctl("set dtx", C.opus_encoder_set_dtx(cEnc, C.opus_int32(dtx))); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Encoder) ctl(op string, ret C.int) error {
	if ret != C.OPUS_OK {
		return fmt.Errorf("opus: %s failed: %s", op, C.GoString(C.opus_strerror(ret)))
	}
	return nil
}

// Encode encodes exactly one frame of interleaved samples. The returned
// packet is a fresh slice owned by the caller.
func (e *Encoder) Encode(frame []int16) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cEnc == nil {
		return nil, fmt.Errorf("opus: encoder is closed")
	}
	if len(frame) != e.frameSize*e.channels {
		return nil, fmt.Errorf("opus: frame has %d samples, want %d", len(frame), e.frameSize*e.channels)
	}

	n := C.opus_encode(e.cEnc,
		(*C.opus_int16)(unsafe.Pointer(&frame[0])), C.int(e.frameSize),
		(*C.uchar)(unsafe.Pointer(&e.buf[0])), C.opus_int32(len(e.buf)))
	if n < 0 {
		return nil, fmt.Errorf("opus: encode failed: %s", C.GoString(C.opus_strerror(n)))
	}
	out := make([]byte, int(n))
	copy(out, e.buf[:n])
	return out, nil
}

// FrameSize returns the frame length in samples per channel.
func (e *Encoder) FrameSize() int {
	return e.frameSize
}

// Format returns the PCM format Encode expects.
func (e *Encoder) Format() pcm.Format {
	return pcm.Format{SampleRate: SampleRate, Channels: e.channels}
}

// Close releases the encoder resources.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cEnc != nil {
		C.opus_encoder_destroy(e.cEnc)
		e.cEnc = nil
	}
	return nil
}
