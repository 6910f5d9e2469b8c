// Package caster runs the capture pipeline: a capture.Source feeds an
// encode stage through a drop-oldest ring, and each encoder feeds its own
// broadcast.Hub through a bounded blocking queue.
//
//	source -> RingBuffer[pcm.Block] -> encode -> BlockBuffer[codec.Packet] -> Hub
//
// Capture never waits on encoding: when the encoder falls behind, the oldest
// pending block is dropped and counted.
package caster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loopcast/loopcast/pkg/audio/capture"
	"github.com/loopcast/loopcast/pkg/audio/codec"
	"github.com/loopcast/loopcast/pkg/audio/pcm"
	"github.com/loopcast/loopcast/pkg/audio/resampler"
	"github.com/loopcast/loopcast/pkg/broadcast"
	"github.com/loopcast/loopcast/pkg/buffer"
)

// Hub names.
const (
	MP3  = "mp3"
	Opus = "opus"
)

// DefaultQueueDepth is the capacity of the capture ring and of each
// encoder's output queue.
const DefaultQueueDepth = 64

// DefaultReopenDelay is the wait before reopening a failed source.
const DefaultReopenDelay = time.Second

// Opener opens the capture source. It is called again after the source
// fails and each time streaming is switched back on.
type Opener func(ctx context.Context) (capture.Source, error)

// Config configures a Caster.
type Config struct {
	// Open opens the capture source. Required.
	Open Opener
	// Encoders maps a hub name to its encoder. At least one is required.
	// The Caster owns the encoders and closes them when Run returns.
	Encoders map[string]codec.Encoder
	// Resampler selects the rate converter.
	Resampler resampler.Kind
	// QueueDepth defaults to DefaultQueueDepth.
	QueueDepth int
	// ReopenDelay defaults to DefaultReopenDelay.
	ReopenDelay time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Caster owns the pipeline and the hubs listeners subscribe to.
type Caster struct {
	open        Opener
	encoders    map[string]codec.Encoder
	kind        resampler.Kind
	depth       int
	reopenDelay time.Duration
	logger      *slog.Logger
	control     *Control

	hubs map[string]*broadcast.Hub

	sourceRate atomic.Int64
	stats      counters
}

// New validates cfg and builds a Caster driven by control.
func New(cfg Config, control *Control) (*Caster, error) {
	if cfg.Open == nil {
		return nil, errors.New("caster: no source opener")
	}
	if len(cfg.Encoders) == 0 {
		return nil, errors.New("caster: no encoders")
	}
	if control == nil {
		control = NewControl(true)
	}
	c := &Caster{
		open:        cfg.Open,
		encoders:    cfg.Encoders,
		kind:        cfg.Resampler,
		depth:       cfg.QueueDepth,
		reopenDelay: cfg.ReopenDelay,
		logger:      cfg.Logger,
		control:     control,
		hubs:        make(map[string]*broadcast.Hub, len(cfg.Encoders)),
	}
	if c.depth <= 0 {
		c.depth = DefaultQueueDepth
	}
	if c.reopenDelay <= 0 {
		c.reopenDelay = DefaultReopenDelay
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	for name, enc := range cfg.Encoders {
		if enc == nil {
			return nil, fmt.Errorf("caster: nil encoder for %q", name)
		}
		c.hubs[name] = broadcast.NewHub(name)
	}
	return c, nil
}

// Control returns the state object driving the Caster.
func (c *Caster) Control() *Control {
	return c.control
}

// Hub returns the hub for the named encoder, or nil.
func (c *Caster) Hub(name string) *broadcast.Hub {
	return c.hubs[name]
}

// Encoder returns the named encoder, or nil.
func (c *Caster) Encoder(name string) codec.Encoder {
	return c.encoders[name]
}

// Clients returns the number of listeners across all hubs.
func (c *Caster) Clients() int {
	n := 0
	for _, h := range c.hubs {
		n += h.Len()
	}
	return n
}

// SourceRate returns the sample rate of the most recently opened source, or
// 0 before any source has opened.
func (c *Caster) SourceRate() int {
	return int(c.sourceRate.Load())
}

// Run captures and encodes until ctx is done. On cancellation the source is
// closed, audio already captured is encoded and flushed, and the hubs drain
// to their listeners before Run returns.
func (c *Caster) Run(ctx context.Context) error {
	defer func() {
		for name, enc := range c.encoders {
			if err := enc.Close(); err != nil {
				c.logger.Warn("caster: close encoder", "codec", name, "error", err)
			}
		}
	}()

	ring := buffer.RingN[pcm.Block](c.depth)
	outs := make(map[string]*buffer.BlockBuffer[codec.Packet], len(c.encoders))
	for name := range c.encoders {
		outs[name] = buffer.BlockN[codec.Packet](c.depth)
	}

	g, gctx := errgroup.WithContext(ctx)
	// Hubs outlive cancellation so that flushed packets still reach
	// listeners; they end when the encode stage closes their queues.
	drain := context.WithoutCancel(gctx)
	for name, out := range outs {
		hub, out := c.hubs[name], out
		g.Go(func() error { return hub.Run(drain, out) })
	}
	g.Go(func() error {
		defer ring.CloseWrite()
		return c.captureLoop(gctx, ring)
	})
	g.Go(func() error {
		return c.encodeLoop(ring, outs)
	})

	err := g.Wait()
	st := c.Stats()
	c.logger.Info("caster: stopped",
		"dropped", st.BlocksDropped,
		"encoded", st.FramesEncoded,
		"encode_errors", st.EncodeErrors,
		"broadcast", st.PacketsBroadcast,
		"deliveries", st.Deliveries,
		"peak_clients", st.PeakClients,
		"reopens", st.Reopens)
	return err
}

// captureLoop keeps a source open while streaming is requested.
func (c *Caster) captureLoop(ctx context.Context, ring *buffer.RingBuffer[pcm.Block]) error {
	opened := false
	for ctx.Err() == nil {
		if !c.control.Streaming() {
			c.control.setRunning(false)
			select {
			case <-ctx.Done():
				return nil
			case <-c.control.Changed():
			}
			continue
		}

		if opened {
			c.stats.reopens.Add(1)
		}
		src, err := c.open(ctx)
		if err != nil {
			c.logger.Error("caster: open source", "error", err)
			if !sleep(ctx, c.reopenDelay) {
				return nil
			}
			continue
		}
		opened = true

		err = c.readSource(ctx, src, ring)
		c.control.setRunning(false)
		if err != nil && ctx.Err() == nil {
			c.logger.Error("caster: capture failed", "error", err)
			if !sleep(ctx, c.reopenDelay) {
				return nil
			}
		}
	}
	return nil
}

// readSource pumps one source into ring until it fails, streaming is
// switched off, or ctx is done. The source is always closed on return.
func (c *Caster) readSource(ctx context.Context, src capture.Source, ring *buffer.RingBuffer[pcm.Block]) error {
	stop := context.AfterFunc(ctx, func() { src.Close() })
	defer stop()
	defer src.Close()

	format := src.Format()
	c.sourceRate.Store(int64(format.SampleRate))
	c.control.setRunning(true)
	c.logger.Info("caster: capturing", "format", format.String())

	for c.control.Streaming() {
		block, err := src.Read()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := block.Check(); err != nil {
			return err
		}
		dropped, err := ring.Add(block)
		if err != nil {
			return nil
		}
		if dropped {
			n := c.stats.dropped.Add(1)
			if n == 1 || n%100 == 0 {
				c.logger.Warn("caster: encoder behind, dropped capture blocks", "total", n)
			}
		}
	}
	c.logger.Info("caster: streaming paused")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
