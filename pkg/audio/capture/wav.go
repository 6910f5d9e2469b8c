package capture

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/loopcast/loopcast/pkg/audio/pcm"
)

// WAV is a Source that plays a WAV file in a loop.
type WAV struct {
	path    string
	format  pcm.Format
	samples []int16
	frames  int
	pacer   *pacer

	mu  sync.Mutex
	pos int
}

// OpenWAV decodes the file at path into memory and returns a looping source
// in the file's own format.
func OpenWAV(path string, opts ...Option) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("capture: %s is not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("capture: decode wav: %w", err)
	}

	format := pcm.Format{SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("capture: %s: %w", path, err)
	}
	var samples []int16
	if dec.WavAudioFormat == wavFormatFloat {
		var fb *goaudio.Float32Buffer
		fb, err = toFloat32(buf)
		if err == nil {
			samples = pcm.FromFloat32(make([]int16, 0, len(fb.Data)), fb.Data)
		}
	} else {
		samples, err = toInt16(buf)
	}
	if err != nil {
		return nil, fmt.Errorf("capture: %s: %w", path, err)
	}
	samples = samples[:len(samples)-len(samples)%format.Channels]
	if len(samples) == 0 {
		return nil, fmt.Errorf("capture: %s holds no audio", path)
	}

	o := newOptions(opts)
	slog.Debug("capture: loaded wav",
		"path", path,
		"rate", format.SampleRate,
		"channels", format.Channels,
		"bits", buf.SourceBitDepth,
		"duration", format.Duration(len(samples)/format.Channels))

	return &WAV{
		path:    path,
		format:  format,
		samples: samples,
		frames:  max(format.SamplesInDuration(o.block), 1),
		pacer:   newPacer(o.realtime),
	}, nil
}

// wavFormatFloat is the WAVE_FORMAT_IEEE_FLOAT format tag.
const wavFormatFloat = 3

// toFloat32 reinterprets the 32-bit words of an IEEE-float file, which the
// decoder hands back as raw integers.
func toFloat32(buf *goaudio.IntBuffer) (*goaudio.Float32Buffer, error) {
	if buf.SourceBitDepth != 32 {
		return nil, fmt.Errorf("unsupported float bit depth %d", buf.SourceBitDepth)
	}
	out := &goaudio.Float32Buffer{
		Format:         buf.Format,
		Data:           make([]float32, len(buf.Data)),
		SourceBitDepth: 32,
	}
	for i, v := range buf.Data {
		out.Data[i] = math.Float32frombits(uint32(int32(v)))
	}
	return out, nil
}

// toInt16 scales decoded integer samples to 16 bits.
func toInt16(buf *goaudio.IntBuffer) ([]int16, error) {
	out := make([]int16, len(buf.Data))
	switch buf.SourceBitDepth {
	case 8:
		// 8-bit WAV is unsigned.
		for i, v := range buf.Data {
			out[i] = int16((v - 128) << 8)
		}
	case 16:
		for i, v := range buf.Data {
			out[i] = int16(v)
		}
	case 24:
		for i, v := range buf.Data {
			out[i] = int16(v >> 8)
		}
	case 32:
		for i, v := range buf.Data {
			out[i] = int16(v >> 16)
		}
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", buf.SourceBitDepth)
	}
	return out, nil
}

// Format implements Source.
func (w *WAV) Format() pcm.Format {
	return w.format
}

// Read implements Source. Blocks that cross the end of the file wrap to its
// start.
func (w *WAV) Read() (pcm.Block, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.pacer.wait(w.format.Duration(w.frames)); err != nil {
		return pcm.Block{}, err
	}

	n := w.frames * w.format.Channels
	out := make([]int16, 0, n)
	for len(out) < n {
		end := min(w.pos+n-len(out), len(w.samples))
		out = append(out, w.samples[w.pos:end]...)
		w.pos = end % len(w.samples)
	}
	return w.format.Block(out), nil
}

// Close implements Source.
func (w *WAV) Close() error {
	w.pacer.close()
	return nil
}
