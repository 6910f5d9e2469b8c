package opus

/*
#cgo pkg-config: opus
#include <opus.h>
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// Decoder wraps a libopus decoder. It is used to verify encoder output.
type Decoder struct {
	channels int
	cDec     *C.OpusDecoder
}

// NewDecoder creates a 48 kHz decoder with the given channel count.
func NewDecoder(channels int) (*Decoder, error) {
	var err C.int
	cDec := C.opus_decoder_create(C.opus_int32(SampleRate), C.int(channels), &err)
	if err != C.OPUS_OK {
		return nil, fmt.Errorf("opus: decoder create failed: %s", C.GoString(C.opus_strerror(err)))
	}
	return &Decoder{channels: channels, cDec: cDec}, nil
}

// Decode decodes one packet into interleaved samples.
func (d *Decoder) Decode(f Frame) ([]int16, error) {
	if d.cDec == nil {
		return nil, fmt.Errorf("opus: decoder is closed")
	}
	if len(f) == 0 {
		return nil, fmt.Errorf("opus: empty packet")
	}

	// 120ms at 48kHz is the longest packet Opus allows.
	maxSamples := 5760
	buf := make([]int16, maxSamples*d.channels)
	n := C.opus_decode(d.cDec,
		(*C.uchar)(unsafe.Pointer(&f[0])), C.opus_int32(len(f)),
		(*C.opus_int16)(unsafe.Pointer(&buf[0])), C.int(maxSamples), 0)
	if n < 0 {
		return nil, fmt.Errorf("opus: decode failed: %s", C.GoString(C.opus_strerror(n)))
	}
	return buf[:int(n)*d.channels], nil
}

// Close releases the decoder resources.
func (d *Decoder) Close() {
	if d.cDec != nil {
		C.opus_decoder_destroy(d.cDec)
		d.cDec = nil
	}
}
