package capture

import (
	"io"
	"sync"
	"time"
)

// pacer releases blocks no faster than their playback duration and makes
// blocked reads return when the source closes.
type pacer struct {
	realtime bool

	start   time.Time
	elapsed time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func newPacer(realtime bool) *pacer {
	return &pacer{realtime: realtime, done: make(chan struct{})}
}

// wait blocks until a block of duration d may be released.
func (p *pacer) wait(d time.Duration) error {
	select {
	case <-p.done:
		return io.EOF
	default:
	}
	if !p.realtime {
		return nil
	}
	if p.start.IsZero() {
		p.start = time.Now()
	}
	p.elapsed += d
	delay := time.Until(p.start.Add(p.elapsed))
	if delay <= 0 {
		return nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-p.done:
		return io.EOF
	}
}

func (p *pacer) close() {
	p.closeOnce.Do(func() { close(p.done) })
}
