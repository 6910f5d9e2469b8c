package caster

import (
	"errors"
	"sort"

	"github.com/loopcast/loopcast/pkg/audio/codec"
	"github.com/loopcast/loopcast/pkg/audio/pcm"
	"github.com/loopcast/loopcast/pkg/audio/resampler"
	"github.com/loopcast/loopcast/pkg/buffer"
)

// track adapts captured blocks to one encoder's format and frame size.
type track struct {
	name string
	enc  codec.Encoder
	out  *buffer.BlockBuffer[codec.Packet]

	target pcm.Format
	pk     *pcm.Packetizer

	// conv converts from srcFormat; rebuilt when the source changes.
	srcFormat pcm.Format
	conv      resampler.Resampler

	index uint64
}

func (c *Caster) newTrack(name string, enc codec.Encoder, out *buffer.BlockBuffer[codec.Packet]) *track {
	target := enc.Format()
	return &track{
		name:   name,
		enc:    enc,
		out:    out,
		target: target,
		pk:     pcm.NewPacketizer(enc.FrameSize(), target.Channels),
	}
}

// encodeLoop drains the capture ring through every track. When the ring is
// closed it pads and encodes the last partial frame, flushes encoders that
// buffer output, and closes the output queues.
func (c *Caster) encodeLoop(ring *buffer.RingBuffer[pcm.Block], outs map[string]*buffer.BlockBuffer[codec.Packet]) error {
	names := make([]string, 0, len(outs))
	for name := range outs {
		names = append(names, name)
	}
	sort.Strings(names)

	tracks := make([]*track, 0, len(names))
	for _, name := range names {
		tracks = append(tracks, c.newTrack(name, c.encoders[name], outs[name]))
	}
	defer func() {
		for _, t := range tracks {
			t.out.CloseWrite()
		}
	}()

	for {
		block, err := ring.Next()
		if err != nil {
			if errors.Is(err, buffer.ErrIteratorDone) {
				break
			}
			return err
		}
		for _, t := range tracks {
			if err := c.push(t, block); err != nil {
				return nil
			}
		}
	}

	for _, t := range tracks {
		if err := c.finish(t); err != nil {
			return nil
		}
	}
	return nil
}

// push converts block and encodes every whole frame it completes. It
// returns an error only when the output queue has been closed.
func (c *Caster) push(t *track, block pcm.Block) error {
	if block.Format != t.srcFormat || t.conv == nil {
		conv, err := resampler.New(c.kind, pcm.Format{SampleRate: block.Format.SampleRate, Channels: t.target.Channels}, t.target.SampleRate)
		if err != nil {
			c.stats.encodeErrors.Add(1)
			c.logger.Error("caster: resampler", "codec", t.name, "error", err)
			return nil
		}
		t.srcFormat, t.conv = block.Format, conv
	}

	remixed := resampler.Remix(block, t.target.Channels)
	converted, err := t.conv.Resample(remixed)
	if err != nil {
		c.stats.encodeErrors.Add(1)
		c.logger.Error("caster: resample", "codec", t.name, "error", err)
		return nil
	}
	for _, frame := range t.pk.Push(converted.Samples) {
		if err := c.encode(t, frame); err != nil {
			return err
		}
	}
	return nil
}

func (c *Caster) encode(t *track, frame []int16) error {
	data, err := t.enc.Encode(frame)
	if err != nil {
		c.stats.encodeErrors.Add(1)
		c.logger.Error("caster: encode", "codec", t.name, "error", err)
		return nil
	}
	c.stats.framesEncoded.Add(1)
	return c.emit(t, data)
}

func (c *Caster) emit(t *track, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	p := codec.Packet{Index: t.index, Data: data, Samples: t.pk.FrameSize()}
	if err := t.out.Add(p); err != nil {
		return err
	}
	t.index++
	return nil
}

func (c *Caster) finish(t *track) error {
	if frame, ok := t.pk.Flush(); ok {
		if err := c.encode(t, frame); err != nil {
			return err
		}
	}
	f, ok := t.enc.(codec.Flusher)
	if !ok {
		return nil
	}
	data, err := f.Flush()
	if err != nil {
		c.stats.encodeErrors.Add(1)
		c.logger.Error("caster: flush", "codec", t.name, "error", err)
		return nil
	}
	return c.emit(t, data)
}
