package capture

import (
	"math"
	"sync"

	"github.com/loopcast/loopcast/pkg/audio/pcm"
)

// toneAmplitude keeps the tone well below full scale.
const toneAmplitude = 0.25

// Tone is a Source producing a continuous sine wave on every channel.
type Tone struct {
	format pcm.Format
	freq   float64
	frames int
	pacer  *pacer

	mu    sync.Mutex
	phase float64
}

// NewTone returns a sine source at freq Hz in format.
func NewTone(freq float64, format pcm.Format, opts ...Option) (*Tone, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &Tone{
		format: format,
		freq:   freq,
		frames: max(format.SamplesInDuration(o.block), 1),
		pacer:  newPacer(o.realtime),
	}, nil
}

// Format implements Source.
func (t *Tone) Format() pcm.Format {
	return t.format
}

// Read implements Source.
func (t *Tone) Read() (pcm.Block, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.pacer.wait(t.format.Duration(t.frames)); err != nil {
		return pcm.Block{}, err
	}

	step := 2 * math.Pi * t.freq / float64(t.format.SampleRate)
	block := t.format.SilenceBlock(t.frames)
	for i := 0; i < t.frames; i++ {
		v := pcm.ClampInt16(math.Sin(t.phase) * toneAmplitude * math.MaxInt16)
		for c := 0; c < t.format.Channels; c++ {
			block.Samples[i*t.format.Channels+c] = v
		}
		t.phase += step
	}
	t.phase = math.Mod(t.phase, 2*math.Pi)
	return block, nil
}

// Close implements Source.
func (t *Tone) Close() error {
	t.pacer.close()
	return nil
}
