package opus

import (
	"fmt"
	"time"
)

type (
	// TOC is the first byte of every Opus packet:
	//
	//	 0 1 2 3 4 5 6 7
	//	+-+-+-+-+-+-+-+-+
	//	| config  |s| c |
	//	+-+-+-+-+-+-+-+-+
	//
	// https://datatracker.ietf.org/doc/html/rfc6716#section-3.1
	TOC byte

	// Configuration is the 5-bit config number of a TOC byte. It selects the
	// coding mode, the audio bandwidth, and the frame duration.
	Configuration byte

	// FrameCode is the 2-bit frame count code of a TOC byte.
	FrameCode byte
)

// Frame count codes.
const (
	OneFrame FrameCode = iota
	TwoEqualFrames
	TwoDifferentFrames
	ArbitraryFrames
)

// Configuration returns the config number.
func (t TOC) Configuration() Configuration {
	return Configuration(t >> 3)
}

// IsStereo reports whether the packet is coded as stereo.
func (t TOC) IsStereo() bool {
	return t&0b00000100 != 0
}

// FrameCode returns the frame count code.
func (t TOC) FrameCode() FrameCode {
	return FrameCode(t & 0b00000011)
}

// String returns a human-readable representation of the TOC.
func (t TOC) String() string {
	return fmt.Sprintf("opus_toc: config=%d, stereo=%v, code=%d, %s",
		t.Configuration(), t.IsStereo(), t.FrameCode(), t.Configuration().FrameDuration())
}

// FrameDuration returns the duration of each frame in packets of this
// configuration.
func (c Configuration) FrameDuration() FrameDuration {
	switch c {
	case 16, 20, 24, 28:
		return Duration2500us
	case 17, 21, 25, 29:
		return Duration5ms
	case 0, 4, 8, 12, 14, 18, 22, 26, 30:
		return Duration10ms
	case 1, 5, 9, 13, 15, 19, 23, 27, 31:
		return Duration20ms
	case 2, 6, 10:
		return Duration40ms
	case 3, 7, 11:
		return Duration60ms
	}
	return 0
}

// FrameDuration is one of the frame durations Opus can encode.
type FrameDuration byte

// Frame durations.
const (
	Duration2500us FrameDuration = iota + 1
	Duration5ms
	Duration10ms
	Duration20ms
	Duration40ms
	Duration60ms
)

// ParseFrameDuration maps a millisecond value to a FrameDuration. 2.5 ms is
// spelled 2.5.
func ParseFrameDuration(ms float64) (FrameDuration, error) {
	switch ms {
	case 2.5:
		return Duration2500us, nil
	case 5:
		return Duration5ms, nil
	case 10:
		return Duration10ms, nil
	case 20:
		return Duration20ms, nil
	case 40:
		return Duration40ms, nil
	case 60:
		return Duration60ms, nil
	}
	return 0, fmt.Errorf("opus: unsupported frame duration %vms", ms)
}

// Duration returns the frame duration as a time.Duration.
func (f FrameDuration) Duration() time.Duration {
	switch f {
	case Duration2500us:
		return 2500 * time.Microsecond
	case Duration5ms:
		return 5 * time.Millisecond
	case Duration10ms:
		return 10 * time.Millisecond
	case Duration20ms:
		return 20 * time.Millisecond
	case Duration40ms:
		return 40 * time.Millisecond
	case Duration60ms:
		return 60 * time.Millisecond
	}
	return 0
}

// Samples returns the frame length in samples per channel at 48 kHz, which
// is also the Ogg granule increment for one such frame.
func (f FrameDuration) Samples() int {
	return int(f.Duration() * SampleRate / time.Second)
}

// String returns a human-readable representation of the FrameDuration.
func (f FrameDuration) String() string {
	if f.Duration() == 0 {
		return "invalid frame duration"
	}
	return f.Duration().String()
}
