package caster

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loopcast/loopcast/pkg/audio/capture"
	"github.com/loopcast/loopcast/pkg/audio/codec"
	"github.com/loopcast/loopcast/pkg/audio/pcm"
	"github.com/loopcast/loopcast/pkg/buffer"
)

// fakeSource yields a fixed list of blocks, then fails with failErr or
// blocks until closed.
type fakeSource struct {
	format  pcm.Format
	blocks  []pcm.Block
	failErr error

	drained chan struct{}
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	next    int
}

func newFakeSource(format pcm.Format, blocks []pcm.Block) *fakeSource {
	return &fakeSource{
		format:  format,
		blocks:  blocks,
		drained: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *fakeSource) Format() pcm.Format { return s.format }

func (s *fakeSource) Read() (pcm.Block, error) {
	s.mu.Lock()
	if s.next < len(s.blocks) {
		b := s.blocks[s.next]
		s.next++
		s.mu.Unlock()
		return b, nil
	}
	s.mu.Unlock()
	select {
	case <-s.drained:
	default:
		close(s.drained)
	}
	if s.failErr != nil {
		return pcm.Block{}, s.failErr
	}
	<-s.done
	return pcm.Block{}, io.EOF
}

func (s *fakeSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// fakeEncoder tags each packet with the first sample of its frame.
type fakeEncoder struct {
	format    pcm.Format
	frameSize int
	delay     time.Duration
	flush     []byte

	frames atomic.Int64
	closed atomic.Bool
}

func (e *fakeEncoder) Encode(frame []int16) ([]byte, error) {
	if len(frame) != e.frameSize*e.format.Channels {
		return nil, errors.New("bad frame size")
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.frames.Add(1)
	return []byte{byte(frame[0]), byte(len(frame) >> 8), byte(len(frame))}, nil
}

func (e *fakeEncoder) FrameSize() int     { return e.frameSize }
func (e *fakeEncoder) Format() pcm.Format { return e.format }
func (e *fakeEncoder) Close() error       { e.closed.Store(true); return nil }

type flushingEncoder struct{ *fakeEncoder }

func (e flushingEncoder) Flush() ([]byte, error) { return e.flush, nil }

func constBlocks(format pcm.Format, frames, n int) []pcm.Block {
	blocks := make([]pcm.Block, n)
	for i := range blocks {
		b := format.SilenceBlock(frames)
		for j := range b.Samples {
			b.Samples[j] = int16(i + 1)
		}
		blocks[i] = b
	}
	return blocks
}

func opener(sources ...*fakeSource) (Opener, *atomic.Int64) {
	var calls atomic.Int64
	return func(context.Context) (capture.Source, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(sources) {
			i = len(sources) - 1
		}
		return sources[i], nil
	}, &calls
}

func collect(t *testing.T, sub interface {
	Next() (codec.Packet, error)
}) []codec.Packet {
	t.Helper()
	var out []codec.Packet
	for {
		p, err := sub.Next()
		if errors.Is(err, buffer.ErrIteratorDone) {
			return out
		}
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		out = append(out, p)
	}
}

func TestCaster_EncodesAndFlushes(t *testing.T) {
	src := newFakeSource(pcm.Stereo48K, constBlocks(pcm.Stereo48K, 480, 10))
	open, _ := opener(src)
	enc := &fakeEncoder{format: pcm.Stereo48K, frameSize: 480, flush: []byte("tail")}

	c, err := New(Config{
		Open:     open,
		Encoders: map[string]codec.Encoder{Opus: flushingEncoder{enc}},
	}, NewControl(true))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sub := c.Hub(Opus).Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-src.drained
	// Let the encode stage catch up before cancelling.
	deadline := time.Now().Add(2 * time.Second)
	for enc.frames.Load() < 10 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}

	got := collect(t, sub)
	if len(got) != 11 {
		t.Fatalf("got %d packets, want 10 frames plus flush", len(got))
	}
	for i, p := range got[:10] {
		if p.Index != uint64(i) || p.Data[0] != byte(i+1) || p.Samples != 480 {
			t.Errorf("packet %d = index %d data %v samples %d", i, p.Index, p.Data, p.Samples)
		}
	}
	if string(got[10].Data) != "tail" || got[10].Index != 10 {
		t.Errorf("last packet = %q index %d, want flush output", got[10].Data, got[10].Index)
	}
	if !enc.closed.Load() {
		t.Error("encoder not closed")
	}
	st := c.Stats()
	if st.FramesEncoded != 10 || st.PacketsBroadcast != 11 || st.Deliveries != 11 || st.PeakClients != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestCaster_PadsPartialFrameAtShutdown(t *testing.T) {
	// 250 frames per block into 1152-frame encoder frames: 5 blocks leave
	// 98 frames pending.
	src := newFakeSource(pcm.Stereo44K1, constBlocks(pcm.Stereo44K1, 250, 5))
	open, _ := opener(src)
	enc := &fakeEncoder{format: pcm.Stereo44K1, frameSize: 1152}

	c, err := New(Config{Open: open, Encoders: map[string]codec.Encoder{MP3: enc}}, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sub := c.Hub(MP3).Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	<-src.drained
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	got := collect(t, sub)
	if len(got) != 2 {
		t.Fatalf("got %d packets, want 2", len(got))
	}
	for _, p := range got {
		if n := int(p.Data[1])<<8 | int(p.Data[2]); n != 1152*2 {
			t.Errorf("frame length = %d, want %d", n, 1152*2)
		}
	}
}

func TestCaster_ResamplesAndRemixes(t *testing.T) {
	mono := pcm.Format{SampleRate: 24000, Channels: 1}
	src := newFakeSource(mono, constBlocks(mono, 240, 20))
	open, _ := opener(src)
	enc := &fakeEncoder{format: pcm.Stereo48K, frameSize: 480}

	c, err := New(Config{Open: open, Encoders: map[string]codec.Encoder{Opus: enc}}, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sub := c.Hub(Opus).Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	<-src.drained
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	got := collect(t, sub)
	if len(got) != 20 {
		t.Fatalf("got %d packets, want 20", len(got))
	}
	if c.SourceRate() != 24000 {
		t.Errorf("SourceRate() = %d, want 24000", c.SourceRate())
	}
	if st := c.Stats(); st.EncodeErrors != 0 {
		t.Errorf("EncodeErrors = %d, want 0", st.EncodeErrors)
	}
}

func TestCaster_StreamingControl(t *testing.T) {
	src := newFakeSource(pcm.Stereo48K, nil)
	open, calls := opener(src)
	enc := &fakeEncoder{format: pcm.Stereo48K, frameSize: 480}
	control := NewControl(false)

	c, err := New(Config{Open: open, Encoders: map[string]codec.Encoder{Opus: enc}}, control)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	if calls.Load() != 0 || control.Running() {
		t.Fatalf("source opened while streaming off")
	}

	control.SetStreaming(true)
	waitFor(t, "running", control.Running)
	if calls.Load() != 1 {
		t.Fatalf("opens = %d, want 1", calls.Load())
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if control.Running() {
		t.Error("Running() after Run returned")
	}
}

func TestCaster_ReopensFailedSource(t *testing.T) {
	failing := newFakeSource(pcm.Stereo48K, constBlocks(pcm.Stereo48K, 480, 2))
	failing.failErr = errors.New("device unplugged")
	healthy := newFakeSource(pcm.Stereo48K, nil)
	open, calls := opener(failing, healthy)
	enc := &fakeEncoder{format: pcm.Stereo48K, frameSize: 480}

	c, err := New(Config{
		Open:        open,
		Encoders:    map[string]codec.Encoder{Opus: enc},
		ReopenDelay: 10 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, "second open", func() bool { return calls.Load() >= 2 })
	cancel()
	<-done
	if st := c.Stats(); st.Reopens < 1 {
		t.Errorf("Reopens = %d, want >= 1", st.Reopens)
	}
}

func TestCaster_DropsWhenEncoderBehind(t *testing.T) {
	src := newFakeSource(pcm.Stereo48K, constBlocks(pcm.Stereo48K, 480, 200))
	open, _ := opener(src)
	enc := &fakeEncoder{format: pcm.Stereo48K, frameSize: 480, delay: 2 * time.Millisecond}

	c, err := New(Config{
		Open:       open,
		Encoders:   map[string]codec.Encoder{Opus: enc},
		QueueDepth: 4,
	}, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	<-src.drained
	cancel()
	<-done

	st := c.Stats()
	if st.BlocksDropped == 0 {
		t.Fatal("no blocks dropped with a slow encoder")
	}
	if int64(st.FramesEncoded)+st.BlocksDropped != 200 {
		t.Errorf("encoded %d + dropped %d != 200", st.FramesEncoded, st.BlocksDropped)
	}
}

func TestNew_Invalid(t *testing.T) {
	open, _ := opener(newFakeSource(pcm.Stereo48K, nil))
	if _, err := New(Config{Encoders: map[string]codec.Encoder{Opus: &fakeEncoder{}}}, nil); err == nil {
		t.Error("New without opener succeeded")
	}
	if _, err := New(Config{Open: open}, nil); err == nil {
		t.Error("New without encoders succeeded")
	}
}

func TestControl_Toggle(t *testing.T) {
	c := NewControl(true)
	if c.Toggle() {
		t.Fatal("Toggle from on returned on")
	}
	select {
	case <-c.Changed():
	default:
		t.Fatal("Toggle did not signal")
	}
	c.SetStreaming(false)
	select {
	case <-c.Changed():
		t.Fatal("SetStreaming to the same value signalled")
	default:
	}
	if !c.Toggle() || !c.Streaming() {
		t.Fatal("Toggle from off did not turn on")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
