// Package resampler converts PCM blocks between sample rates and channel
// layouts.
//
// Two rate converters are provided:
//
//   - Linear: per-channel linear interpolation with no anti-aliasing filter.
//     It is stateless, adds no latency, and aliases content above the lower
//     Nyquist frequency. This is the default.
//   - HQ: a band-limited polyphase converter backed by
//     github.com/tphakala/go-audio-resampling. It keeps filter state between
//     blocks and must be chosen explicitly.
//
// Remix folds or duplicates channels so that any capture layout can feed a
// mono or stereo codec.
//
// Example usage:
//
//	r, err := resampler.New(resampler.KindLinear, capture.Format(), 48000)
//	if err != nil {
//		return err
//	}
//	out, err := r.Resample(block)
package resampler
