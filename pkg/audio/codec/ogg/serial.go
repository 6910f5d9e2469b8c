package ogg

import (
	"sync"
	"time"
)

// Serials hands out stream serials that are unique among open streams.
//
// Candidates mix a nanosecond timestamp with a monotonic counter, so two
// streams opened in the same clock tick still differ. A candidate that
// collides with a serial still held is skipped.
type Serials struct {
	mu      sync.Mutex
	counter uint32
	inUse   map[uint32]struct{}
	now     func() time.Time
}

// NewSerials returns an empty allocator.
func NewSerials() *Serials {
	return &Serials{
		inUse: make(map[uint32]struct{}),
		now:   time.Now,
	}
}

// Acquire returns a serial not held by any other open stream.
func (s *Serials) Acquire() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		s.counter++
		ns := uint64(s.now().UnixNano())
		serial := uint32(ns) ^ uint32(ns>>32) ^ (s.counter * 0x9e3779b1)
		if _, taken := s.inUse[serial]; taken {
			continue
		}
		s.inUse[serial] = struct{}{}
		return serial
	}
}

// Release returns serial to the pool.
func (s *Serials) Release(serial uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inUse, serial)
}

// Len returns the number of serials held.
func (s *Serials) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inUse)
}
