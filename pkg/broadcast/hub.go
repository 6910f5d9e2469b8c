// Package broadcast fans one packet stream out to many listeners.
//
// Each Subscriber owns an unbounded queue, so a slow listener never stalls
// the Hub or its peers. A listener that stops reading is bounded by its own
// writer giving up (write deadlines in the server), after which its queue
// rejects sends and the Hub drops it on the next packet.
package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/loopcast/loopcast/pkg/audio/codec"
	"github.com/loopcast/loopcast/pkg/buffer"
)

// Hub delivers each packet to every subscriber registered at the time of
// delivery, in order.
type Hub struct {
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	subs   []*Subscriber
	closed bool

	active    atomic.Int64
	peak      atomic.Int64
	delivered atomic.Uint64
	packets   atomic.Uint64
}

// NewHub returns an empty hub. name labels log lines, e.g. "mp3".
func NewHub(name string) *Hub {
	return &Hub{
		name:   name,
		logger: slog.Default().With("hub", name),
	}
}

// Name returns the hub label.
func (h *Hub) Name() string {
	return h.name
}

// Subscribe registers a new listener. It receives every packet broadcast
// after this call returns and none from before. Subscribing to a closed hub
// returns a subscriber whose Next reports buffer.ErrIteratorDone.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		ID:    uuid.New(),
		hub:   h,
		queue: buffer.N[codec.Packet](16),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.queue.CloseWrite()
		s.once.Do(func() {})
		return s
	}
	h.subs = append(h.subs, s)
	n := h.active.Add(1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	h.logger.Debug("broadcast: subscribed", "id", s.ID, "clients", n)
	return s
}

// Broadcast queues p for every subscriber and returns how many accepted it.
// Subscribers whose queue rejects the packet are removed.
func (h *Hub) Broadcast(p codec.Packet) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.packets.Add(1)
	kept := h.subs[:0]
	for _, s := range h.subs {
		if err := s.queue.Add(p); err != nil {
			h.logger.Debug("broadcast: dropped subscriber", "id", s.ID)
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(h.subs); i++ {
		h.subs[i] = nil
	}
	h.subs = kept
	h.delivered.Add(uint64(len(kept)))
	return len(kept)
}

// Run broadcasts packets from src until src is drained after CloseWrite or
// ctx is done. On return the hub is closed, so subscribers drain what they
// already hold and then end.
func (h *Hub) Run(ctx context.Context, src *buffer.BlockBuffer[codec.Packet]) error {
	defer h.Close()

	stop := context.AfterFunc(ctx, func() { src.CloseWithError(ctx.Err()) })
	defer stop()

	for {
		p, err := src.Next()
		if err != nil {
			if errors.Is(err, buffer.ErrIteratorDone) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		h.Broadcast(p)
	}
}

// Len returns the number of subscribers that have not closed.
func (h *Hub) Len() int {
	return int(h.active.Load())
}

// Peak returns the largest number of concurrent subscribers seen.
func (h *Hub) Peak() int {
	return int(h.peak.Load())
}

// Packets returns the number of packets broadcast.
func (h *Hub) Packets() uint64 {
	return h.packets.Load()
}

// Deliveries returns the number of packets queued across all subscribers.
func (h *Hub) Deliveries() uint64 {
	return h.delivered.Load()
}

// Close stops accepting subscribers and ends every current subscription
// once its queue drains.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, s := range h.subs {
		s.queue.CloseWrite()
	}
	h.subs = nil
}

// Subscriber is one listener's view of a Hub.
type Subscriber struct {
	// ID identifies the listener in logs.
	ID uuid.UUID

	hub   *Hub
	queue *buffer.Buffer[codec.Packet]
	once  sync.Once
}

// Next blocks for the next packet. It returns buffer.ErrIteratorDone once
// the hub has closed and the queue is drained, and an error after Close.
func (s *Subscriber) Next() (codec.Packet, error) {
	return s.queue.Next()
}

// Pending returns the number of queued packets.
func (s *Subscriber) Pending() int {
	return s.queue.Len()
}

// Close ends the subscription. Queued packets are discarded, a blocked Next
// returns, and the hub drops the subscriber on its next broadcast. Close is
// idempotent.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.queue.Close()
		n := s.hub.active.Add(-1)
		s.hub.logger.Debug("broadcast: unsubscribed", "id", s.ID, "clients", n)
	})
}
