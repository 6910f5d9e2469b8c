package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/loopcast/loopcast/pkg/audio/pcm"
)

// HQ is a band-limited rate converter.
//
// It keeps filter history across calls, so blocks must be fed in stream
// order and all share the source format given to NewHQ. Output length per
// call may differ slightly from the ideal ratio while the filter fills.
type HQ struct {
	src    pcm.Format
	target int
	r      resampling.Resampler
	in     []float64
}

// NewHQ returns an HQ converting src to targetRate.
func NewHQ(src pcm.Format, targetRate int) (*HQ, error) {
	h := &HQ{src: src, target: targetRate}
	if src.SampleRate == targetRate {
		return h, nil
	}
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate),
		OutputRate: float64(targetRate),
		Channels:   src.Channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create hq: %w", err)
	}
	h.r = r
	return h, nil
}

// Resample implements Resampler.
func (h *HQ) Resample(b pcm.Block) (pcm.Block, error) {
	if b.Format != h.src {
		return pcm.Block{}, fmt.Errorf("resampler: hq block format %v, want %v", b.Format, h.src)
	}
	if h.r == nil {
		return b, nil
	}

	h.in = h.in[:0]
	for _, s := range b.Samples {
		h.in = append(h.in, float64(s)/32768.0)
	}
	output, err := h.r.Process(h.in)
	if err != nil {
		return pcm.Block{}, fmt.Errorf("resampler: hq process: %w", err)
	}

	// Drop a trailing partial frame, which the filter can emit mid-stream.
	n := len(output) / h.src.Channels * h.src.Channels
	out := pcm.Block{
		Format:  pcm.Format{SampleRate: h.target, Channels: h.src.Channels},
		Samples: make([]int16, n),
	}
	for i, s := range output[:n] {
		out.Samples[i] = pcm.ClampInt16(s * 32767.0)
	}
	return out, nil
}
