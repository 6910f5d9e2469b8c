package resampler

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/loopcast/loopcast/pkg/audio/pcm"
)

func TestLinearResample_44100To48000(t *testing.T) {
	in := pcm.Stereo44K1.SilenceBlock(4410)
	for i := 0; i < 4410; i++ {
		v := int16(math.Sin(2*math.Pi*440*float64(i)/44100) * 16000)
		in.Samples[i*2] = v
		in.Samples[i*2+1] = -v
	}

	out := LinearResample(in, 48000)

	if out.Format != (pcm.Format{SampleRate: 48000, Channels: 2}) {
		t.Fatalf("Format = %v, want 48000/2", out.Format)
	}
	if got := out.Frames(); got < 4799 || got > 4801 {
		t.Fatalf("Frames() = %d, want 4800 +/- 1", got)
	}
	if len(out.Samples)%2 != 0 {
		t.Fatalf("len(Samples) = %d, not a whole number of frames", len(out.Samples))
	}
	for i := 0; i < out.Frames(); i++ {
		if out.Samples[i*2] != -out.Samples[i*2+1] {
			t.Fatalf("frame %d: channels not interpolated independently: %d, %d",
				i, out.Samples[i*2], out.Samples[i*2+1])
		}
	}
}

func TestLinearResample_SameRate(t *testing.T) {
	in := pcm.Stereo48K.Block([]int16{1, 2, 3, 4})
	out := LinearResample(in, 48000)

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("same-rate resample changed block (-want +got):\n%s", diff)
	}
}

func TestLinearResample_Empty(t *testing.T) {
	out := LinearResample(pcm.Stereo44K1.Block(nil), 48000)
	if out.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", out.Frames())
	}
	if out.Format.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", out.Format.SampleRate)
	}
}

func TestLinearResample_Interpolation(t *testing.T) {
	// Doubling the rate places every odd output frame halfway between inputs.
	in := pcm.Format{SampleRate: 8000, Channels: 1}.Block([]int16{0, 100, 200, 300})
	out := LinearResample(in, 16000)

	want := []int16{0, 50, 100, 150, 200, 250, 300, 300}
	if diff := cmp.Diff(want, out.Samples); diff != "" {
		t.Errorf("Samples mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearResample_Downsample(t *testing.T) {
	in := pcm.Format{SampleRate: 48000, Channels: 1}.Block(make([]int16, 480))
	out := LinearResample(in, 16000)
	if out.Frames() != 160 {
		t.Errorf("Frames() = %d, want 160", out.Frames())
	}
}

func TestNew(t *testing.T) {
	r, err := New(KindLinear, pcm.Stereo44K1, 48000)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, ok := r.(Linear); !ok {
		t.Errorf("New(linear) = %T, want Linear", r)
	}

	if _, err := New("cubic", pcm.Stereo44K1, 48000); err == nil {
		t.Error("New accepted unknown kind")
	}
	if _, err := New(KindLinear, pcm.Format{}, 48000); err == nil {
		t.Error("New accepted invalid source format")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindLinear, false},
		{"linear", KindLinear, false},
		{"hq", KindHQ, false},
		{"sinc", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHQ_SameRatePassthrough(t *testing.T) {
	h, err := NewHQ(pcm.Stereo48K, 48000)
	if err != nil {
		t.Fatalf("NewHQ error: %v", err)
	}
	in := pcm.Stereo48K.Block([]int16{5, 6, 7, 8})
	out, err := h.Resample(in)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("passthrough changed block (-want +got):\n%s", diff)
	}
}

func TestHQ_RejectsFormatChange(t *testing.T) {
	h, err := NewHQ(pcm.Stereo44K1, 48000)
	if err != nil {
		t.Fatalf("NewHQ error: %v", err)
	}
	if _, err := h.Resample(pcm.Stereo48K.SilenceBlock(10)); err == nil {
		t.Error("Resample accepted a block of a different format")
	}
}

func TestHQ_Stream(t *testing.T) {
	h, err := NewHQ(pcm.Stereo44K1, 48000)
	if err != nil {
		t.Fatalf("NewHQ error: %v", err)
	}
	total := 0
	for i := 0; i < 20; i++ {
		out, err := h.Resample(pcm.Stereo44K1.SilenceBlock(441))
		if err != nil {
			t.Fatalf("Resample error: %v", err)
		}
		if out.Format.SampleRate != 48000 || out.Format.Channels != 2 {
			t.Fatalf("Format = %v, want 48000/2", out.Format)
		}
		total += out.Frames()
	}
	// 200ms in; allow for filter delay.
	if total > 9600 {
		t.Errorf("produced %d frames from 8820, want at most 9600", total)
	}
}

func TestRemix(t *testing.T) {
	tests := []struct {
		name     string
		in       pcm.Block
		channels int
		want     []int16
	}{
		{
			name:     "stereo to mono",
			in:       pcm.Format{SampleRate: 48000, Channels: 2}.Block([]int16{100, 200, -100, -300}),
			channels: 1,
			want:     []int16{150, -200},
		},
		{
			name:     "mono to stereo",
			in:       pcm.Format{SampleRate: 48000, Channels: 1}.Block([]int16{7, -7}),
			channels: 2,
			want:     []int16{7, 7, -7, -7},
		},
		{
			name:     "quad to stereo",
			in:       pcm.Format{SampleRate: 48000, Channels: 4}.Block([]int16{10, 20, 30, 40}),
			channels: 2,
			want:     []int16{20, 30},
		},
		{
			name:     "5ch to mono",
			in:       pcm.Format{SampleRate: 48000, Channels: 5}.Block([]int16{30, 10, 30, 10, 30}),
			channels: 1,
			want:     []int16{20},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Remix(tt.in, tt.channels)
			if out.Format.Channels != tt.channels {
				t.Fatalf("Channels = %d, want %d", out.Format.Channels, tt.channels)
			}
			if diff := cmp.Diff(tt.want, out.Samples); diff != "" {
				t.Errorf("Samples mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
