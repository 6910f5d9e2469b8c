package resampler

import (
	"fmt"

	"github.com/loopcast/loopcast/pkg/audio/pcm"
)

// Kind selects a rate converter.
type Kind string

const (
	// KindLinear selects Linear.
	KindLinear Kind = "linear"
	// KindHQ selects HQ.
	KindHQ Kind = "hq"
)

// ParseKind validates a converter name. The empty string selects KindLinear.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindLinear:
		return KindLinear, nil
	case KindHQ:
		return KindHQ, nil
	}
	return "", fmt.Errorf("resampler: unknown kind %q (want %q or %q)", s, KindLinear, KindHQ)
}

// Resampler converts blocks to a fixed target sample rate.
type Resampler interface {
	Resample(b pcm.Block) (pcm.Block, error)
}

// New returns a Resampler of the given kind converting src to targetRate.
func New(kind Kind, src pcm.Format, targetRate int) (Resampler, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if targetRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid target rate %d", targetRate)
	}
	switch kind {
	case "", KindLinear:
		return Linear{Rate: targetRate}, nil
	case KindHQ:
		return NewHQ(src, targetRate)
	}
	return nil, fmt.Errorf("resampler: unknown kind %q", kind)
}

// Linear resamples by linear interpolation.
type Linear struct {
	// Rate is the target sample rate.
	Rate int
}

// Resample implements Resampler.
func (l Linear) Resample(b pcm.Block) (pcm.Block, error) {
	return LinearResample(b, l.Rate), nil
}

// LinearResample converts b to targetRate.
//
// The output holds floor(frames*targetRate/srcRate) frames. Output frame i
// reads source position i*srcRate/targetRate, clamped to the last input
// frame, and interpolates each channel between its two neighbours. When the
// rates match, b is returned unchanged.
func LinearResample(b pcm.Block, targetRate int) pcm.Block {
	src := b.Format.SampleRate
	if src == targetRate || src <= 0 || targetRate <= 0 {
		return b
	}
	ch := b.Format.Channels
	out := pcm.Block{Format: pcm.Format{SampleRate: targetRate, Channels: ch}}

	in := b.Frames()
	if in == 0 {
		return out
	}
	n := int(int64(in) * int64(targetRate) / int64(src))
	out.Samples = make([]int16, n*ch)

	step := float64(src) / float64(targetRate)
	last := in - 1
	for i := 0; i < n; i++ {
		pos := float64(i) * step
		if pos > float64(last) {
			pos = float64(last)
		}
		i0 := int(pos)
		i1 := i0 + 1
		if i1 > last {
			i1 = last
		}
		frac := pos - float64(i0)
		for c := 0; c < ch; c++ {
			s0 := float64(b.Samples[i0*ch+c])
			s1 := float64(b.Samples[i1*ch+c])
			out.Samples[i*ch+c] = pcm.ClampInt16(s0 + (s1-s0)*frac)
		}
	}
	return out
}
