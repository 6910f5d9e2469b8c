package opus

import "time"

// Frame is one encoded Opus packet.
type Frame []byte

// TOC returns the TOC byte of the packet.
func (f Frame) TOC() TOC {
	if len(f) == 0 {
		return 0
	}
	return TOC(f[0])
}

// Duration returns the total audio duration carried by the packet.
func (f Frame) Duration() time.Duration {
	if len(f) == 0 {
		return 0
	}
	toc := f.TOC()
	fd := toc.Configuration().FrameDuration().Duration()
	switch toc.FrameCode() {
	case OneFrame:
		return fd
	case TwoEqualFrames, TwoDifferentFrames:
		return fd * 2
	case ArbitraryFrames:
		if len(f) < 2 {
			return 0
		}
		return fd * time.Duration(f[1]&0b00111111)
	}
	return 0
}

// Samples returns the number of 48 kHz samples per channel in the packet.
func (f Frame) Samples() int {
	return int(f.Duration() * SampleRate / time.Second)
}
