// Package audio is the umbrella for the capture and encode pipeline.
//
// Sub-packages:
//
//   - pcm: sample formats, blocks and the frame packetizer
//   - resampler: rate conversion and channel remixing
//   - capture: file and synthetic PCM sources
//   - portaudio: device enumeration and input streams (cgo)
//   - codec: the encoder interface, with opus, mp3 and ogg below it
//
// Example usage:
//
//	import (
//	    "github.com/loopcast/loopcast/pkg/audio/capture"
//	    "github.com/loopcast/loopcast/pkg/audio/pcm"
//	)
//
//	src, err := capture.NewTone(440, pcm.Format{SampleRate: 48000, Channels: 2})
//	block, err := src.Read()
package audio
