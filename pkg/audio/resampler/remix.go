package resampler

import "github.com/loopcast/loopcast/pkg/audio/pcm"

// Remix converts b to the given channel count (1 or 2).
//
// Mono is duplicated to stereo and stereo is averaged to mono. Layouts wider
// than stereo fold even-numbered channels into left and odd-numbered
// channels into right before any further conversion.
func Remix(b pcm.Block, channels int) pcm.Block {
	src := b.Format.Channels
	if src == channels || src <= 0 || channels <= 0 {
		return b
	}
	if src > 2 {
		b = foldToStereo(b)
		if channels == 2 {
			return b
		}
		src = 2
	}

	frames := b.Frames()
	out := pcm.Block{Format: pcm.Format{SampleRate: b.Format.SampleRate, Channels: channels}}
	switch {
	case src == 2 && channels == 1:
		out.Samples = make([]int16, frames)
		for i := 0; i < frames; i++ {
			l := int32(b.Samples[i*2])
			r := int32(b.Samples[i*2+1])
			out.Samples[i] = int16((l + r) / 2)
		}
	case src == 1 && channels == 2:
		out.Samples = make([]int16, frames*2)
		for i, s := range b.Samples[:frames] {
			out.Samples[i*2] = s
			out.Samples[i*2+1] = s
		}
	default:
		return b
	}
	return out
}

func foldToStereo(b pcm.Block) pcm.Block {
	ch := b.Format.Channels
	frames := b.Frames()
	nl := (ch + 1) / 2
	nr := ch / 2

	out := pcm.Block{
		Format:  pcm.Format{SampleRate: b.Format.SampleRate, Channels: 2},
		Samples: make([]int16, frames*2),
	}
	for i := 0; i < frames; i++ {
		var l, r int32
		for c := 0; c < ch; c++ {
			s := int32(b.Samples[i*ch+c])
			if c%2 == 0 {
				l += s
			} else {
				r += s
			}
		}
		out.Samples[i*2] = int16(l / int32(nl))
		out.Samples[i*2+1] = int16(r / int32(nr))
	}
	return out
}
