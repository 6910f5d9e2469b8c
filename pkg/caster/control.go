package caster

import "sync/atomic"

// Control is the shared on/off state of a Caster.
//
// Streaming is the requested state, set by the operator. Running reports
// whether audio is actually being captured, which lags Streaming while a
// device opens and drops back when the device fails.
type Control struct {
	streaming atomic.Bool
	running   atomic.Bool
	changed   chan struct{}
}

// NewControl returns a Control with streaming initially set to on.
func NewControl(on bool) *Control {
	c := &Control{changed: make(chan struct{}, 1)}
	c.streaming.Store(on)
	return c
}

// Streaming reports whether capture has been requested.
func (c *Control) Streaming() bool {
	return c.streaming.Load()
}

// SetStreaming requests capture on or off. Connected listeners stay
// connected either way; while off they receive nothing.
func (c *Control) SetStreaming(on bool) {
	if c.streaming.Swap(on) == on {
		return
	}
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Toggle flips the requested state and returns the new value.
func (c *Control) Toggle() bool {
	for {
		old := c.streaming.Load()
		if c.streaming.CompareAndSwap(old, !old) {
			select {
			case c.changed <- struct{}{}:
			default:
			}
			return !old
		}
	}
}

// Running reports whether a source is open and delivering audio.
func (c *Control) Running() bool {
	return c.running.Load()
}

func (c *Control) setRunning(on bool) {
	c.running.Store(on)
}

// Changed is signalled after the requested state changes.
func (c *Control) Changed() <-chan struct{} {
	return c.changed
}
