// Package pcm provides types for interleaved 16-bit PCM audio.
//
// Key types:
//   - Format: sample rate and channel count of a stream
//   - Block: a run of interleaved samples tagged with its Format
//   - Packetizer: regroups ragged blocks into fixed-size codec frames
//
// Example usage:
//
//	format := pcm.Format{SampleRate: 48000, Channels: 2}
//	p := pcm.NewPacketizer(480, format.Channels)
//	for _, frame := range p.Push(block.Samples) {
//		encode(frame)
//	}
//	if tail, ok := p.Flush(); ok {
//		encode(tail)
//	}
package pcm
