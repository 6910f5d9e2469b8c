package pcm

// Packetizer regroups interleaved samples of arbitrary length into frames of
// exactly FrameSize samples per channel.
//
// Leftover samples are carried between Push calls. A Packetizer is not safe
// for concurrent use.
type Packetizer struct {
	frameSize int
	channels  int
	carry     []int16
}

// NewPacketizer returns a Packetizer emitting frames of frameSize samples per
// channel for interleaved input with the given channel count.
func NewPacketizer(frameSize, channels int) *Packetizer {
	if frameSize < 1 {
		frameSize = 1
	}
	if channels < 1 {
		channels = 1
	}
	return &Packetizer{
		frameSize: frameSize,
		channels:  channels,
		carry:     make([]int16, 0, frameSize*channels),
	}
}

// FrameSize returns the frame length in samples per channel.
func (p *Packetizer) FrameSize() int {
	return p.frameSize
}

// Pending returns the number of interleaved samples waiting for a full frame.
func (p *Packetizer) Pending() int {
	return len(p.carry)
}

// Push appends samples and returns every complete frame. Each returned frame
// is a fresh slice of FrameSize*channels samples owned by the caller.
func (p *Packetizer) Push(samples []int16) [][]int16 {
	n := p.frameSize * p.channels
	var frames [][]int16

	if len(p.carry) > 0 {
		need := n - len(p.carry)
		if len(samples) < need {
			p.carry = append(p.carry, samples...)
			return nil
		}
		frame := make([]int16, n)
		copy(frame, p.carry)
		copy(frame[len(p.carry):], samples[:need])
		frames = append(frames, frame)
		samples = samples[need:]
		p.carry = p.carry[:0]
	}

	for len(samples) >= n {
		frame := make([]int16, n)
		copy(frame, samples[:n])
		frames = append(frames, frame)
		samples = samples[n:]
	}
	p.carry = append(p.carry, samples...)
	return frames
}

// Flush returns the buffered partial frame zero-padded to full length.
//
// ok is false when nothing is buffered. A flushed tail is emitted once;
// a second Flush without new input returns ok == false.
func (p *Packetizer) Flush() (frame []int16, ok bool) {
	if len(p.carry) == 0 {
		return nil, false
	}
	frame = make([]int16, p.frameSize*p.channels)
	copy(frame, p.carry)
	p.carry = p.carry[:0]
	return frame, true
}
