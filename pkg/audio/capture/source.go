// Package capture provides the PCM sources the pipeline reads from.
//
// A device source comes from pkg/audio/portaudio, whose InputStream already
// satisfies Source. This package adds file and synthetic sources for hosts
// without a loopback device, and parses the source selector used in
// configuration.
package capture

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/loopcast/loopcast/pkg/audio/pcm"
)

// Source yields blocks of captured PCM.
//
// Read blocks until a block is ready. After Close, Read returns io.EOF.
// Close may be called concurrently with Read.
type Source interface {
	Format() pcm.Format
	Read() (pcm.Block, error)
	Close() error
}

// Kind names a source type.
type Kind string

const (
	// KindDevice captures from an audio input device.
	KindDevice Kind = "device"
	// KindWAV loops a WAV file.
	KindWAV Kind = "wav"
	// KindTone generates a sine wave.
	KindTone Kind = "tone"
)

// Spec is a parsed source selector.
type Spec struct {
	Kind Kind
	// Path is the WAV file for KindWAV.
	Path string
	// Frequency is the tone pitch in Hz for KindTone.
	Frequency float64
}

// String returns the selector form of s.
func (s Spec) String() string {
	switch s.Kind {
	case KindWAV:
		return "wav:" + s.Path
	case KindTone:
		return "tone:" + strconv.FormatFloat(s.Frequency, 'f', -1, 64)
	}
	return string(KindDevice)
}

// ParseSpec parses "device", "wav:<path>" or "tone:<hz>". The empty string
// is "device".
func ParseSpec(s string) (Spec, error) {
	kind, arg, _ := strings.Cut(s, ":")
	switch Kind(kind) {
	case "", KindDevice:
		if arg != "" {
			return Spec{}, fmt.Errorf("capture: device source takes no argument, got %q", s)
		}
		return Spec{Kind: KindDevice}, nil
	case KindWAV:
		if arg == "" {
			return Spec{}, fmt.Errorf("capture: wav source needs a path")
		}
		return Spec{Kind: KindWAV, Path: arg}, nil
	case KindTone:
		hz, err := strconv.ParseFloat(arg, 64)
		if err != nil || hz <= 0 || hz >= 24000 {
			return Spec{}, fmt.Errorf("capture: invalid tone frequency %q", arg)
		}
		return Spec{Kind: KindTone, Frequency: hz}, nil
	}
	return Spec{}, fmt.Errorf("capture: unknown source %q", s)
}

// DefaultBlockDuration is the amount of audio returned per Read.
const DefaultBlockDuration = 10 * time.Millisecond

type options struct {
	block    time.Duration
	realtime bool
}

// Option configures a file or synthetic source.
type Option func(*options)

// WithBlockDuration sets the amount of audio returned per Read.
func WithBlockDuration(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.block = d
		}
	}
}

// WithRealtime paces Read to the wall clock when on, as a device would.
// Sources are paced by default.
func WithRealtime(on bool) Option {
	return func(o *options) { o.realtime = on }
}

func newOptions(opts []Option) options {
	o := options{block: DefaultBlockDuration, realtime: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
