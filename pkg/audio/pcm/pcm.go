package pcm

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Common formats.
var (
	// Stereo48K is the Opus-native format.
	Stereo48K = Format{SampleRate: 48000, Channels: 2}
	// Stereo44K1 is the CD-audio format.
	Stereo44K1 = Format{SampleRate: 44100, Channels: 2}
	// Mono16K is a common speech format.
	Mono16K = Format{SampleRate: 16000, Channels: 1}
)

// Format describes interleaved signed 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Validate reports whether the format is usable.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("pcm: invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("pcm: invalid channel count %d", f.Channels)
	}
	return nil
}

// SamplesInDuration returns the number of frames (samples per channel) in d.
func (f Format) SamplesInDuration(d time.Duration) int {
	return int(int64(f.SampleRate) * int64(d) / int64(time.Second))
}

// Duration returns the playback duration of the given number of frames.
func (f Format) Duration(frames int) time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// BytesRate returns the raw byte rate of the format.
func (f Format) BytesRate() int {
	return f.SampleRate * f.Channels * 2
}

// Block wraps samples in a Block of this format.
func (f Format) Block(samples []int16) Block {
	return Block{Format: f, Samples: samples}
}

// SilenceBlock returns a zeroed block holding the given number of frames.
func (f Format) SilenceBlock(frames int) Block {
	return Block{Format: f, Samples: make([]int16, frames*f.Channels)}
}

// String returns the MIME-style representation of the format.
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.SampleRate, f.Channels)
}

// Block is a run of interleaved samples.
type Block struct {
	Format  Format
	Samples []int16
}

// ErrMisaligned is returned when a block's sample count is not a multiple of
// its channel count.
var ErrMisaligned = errors.New("pcm: sample count not a multiple of channels")

// Frames returns the number of samples per channel.
func (b Block) Frames() int {
	if b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// Duration returns the playback duration of the block.
func (b Block) Duration() time.Duration {
	return b.Format.Duration(b.Frames())
}

// Check reports ErrMisaligned for a block with a trailing partial frame.
func (b Block) Check() error {
	if err := b.Format.Validate(); err != nil {
		return err
	}
	if len(b.Samples)%b.Format.Channels != 0 {
		return ErrMisaligned
	}
	return nil
}

// FromFloat32 converts normalized float samples to int16, clamping values
// outside [-1, 1].
func FromFloat32(dst []int16, src []float32) []int16 {
	for _, s := range src {
		dst = append(dst, ClampInt16(float64(s)*math.MaxInt16))
	}
	return dst
}

// ClampInt16 rounds v to the nearest int16, saturating at the type bounds.
func ClampInt16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
