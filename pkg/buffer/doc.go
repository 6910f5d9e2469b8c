// Package buffer provides goroutine-safe element queues for streaming
// pipelines.
//
// Three queue types cover the three flow-control policies a live stream needs:
//
//   - Buffer: an unbounded FIFO. Add never blocks; Next blocks until an
//     element arrives. Used for per-client outbound queues, where a slow reader
//     must not push back on its producer.
//
//   - RingBuffer: a fixed-size FIFO that drops the oldest element when full.
//     Add never blocks and reports whether something was dropped. Used where
//     losing stale data beats stalling the producer.
//
//   - BlockBuffer: a fixed-size FIFO that blocks Add when full and Next when
//     empty.
//
// All queues share the same shutdown contract. CloseWrite stops producers and
// lets consumers drain what is left, after which Next returns ErrIteratorDone.
// CloseWithError (and Close) stops both ends immediately; pending and later
// calls fail with an error wrapping the close reason.
//
// Example:
//
//	q := buffer.N[[]byte](16)
//	go func() {
//		defer q.CloseWrite()
//		q.Add([]byte("hello"))
//	}()
//	for {
//		v, err := q.Next()
//		if errors.Is(err, buffer.ErrIteratorDone) {
//			break
//		}
//		...
//	}
package buffer
