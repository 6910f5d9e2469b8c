package buffer

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestRingBuffer(t *testing.T) {
	tests := []struct {
		size        int
		add         []int
		want        []int
		wantDropped int64
	}{
		{size: 1, add: []int{1, 2, 3}, want: []int{3}, wantDropped: 2},
		{size: 2, add: []int{1, 2, 3}, want: []int{2, 3}, wantDropped: 1},
		{size: 3, add: []int{1, 2, 3}, want: []int{1, 2, 3}, wantDropped: 0},
		{size: 4, add: []int{1, 2, 3}, want: []int{1, 2, 3}, wantDropped: 0},
	}

	for _, tt := range tests {
		rb := RingN[int](tt.size)
		for _, v := range tt.add {
			if _, err := rb.Add(v); err != nil {
				t.Fatalf("size=%d: Add(%d) error: %v", tt.size, v, err)
			}
		}
		rb.CloseWrite()

		if rb.Len() != len(tt.want) {
			t.Errorf("size=%d: Len() = %d, want %d", tt.size, rb.Len(), len(tt.want))
		}
		if rb.Dropped() != tt.wantDropped {
			t.Errorf("size=%d: Dropped() = %d, want %d", tt.size, rb.Dropped(), tt.wantDropped)
		}

		var got []int
		for {
			v, err := rb.Next()
			if errors.Is(err, ErrIteratorDone) {
				break
			}
			if err != nil {
				t.Fatalf("size=%d: Next error: %v", tt.size, err)
			}
			got = append(got, v)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("size=%d: got %v, want %v", tt.size, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("size=%d: got %v, want %v", tt.size, got, tt.want)
			}
		}
	}
}

func TestRingBuffer_AddReportsDrop(t *testing.T) {
	rb := RingN[int](2)

	for i, wantDrop := range []bool{false, false, true, true} {
		dropped, err := rb.Add(i)
		if err != nil {
			t.Fatalf("Add error: %v", err)
		}
		if dropped != wantDrop {
			t.Fatalf("Add(%d) dropped = %v, want %v", i, dropped, wantDrop)
		}
	}

	// The two survivors are the newest elements.
	for _, want := range []int{2, 3} {
		got, err := rb.Next()
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		if got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
}

func TestRingBuffer_WrapAround(t *testing.T) {
	rb := RingN[int](3)

	for i := 0; i < 10; i++ {
		rb.Add(i)
		got, err := rb.Next()
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		if got != i {
			t.Fatalf("Next() = %d, want %d", got, i)
		}
	}
	if rb.Dropped() != 0 {
		t.Fatalf("Dropped() = %d, want 0", rb.Dropped())
	}
}

func TestRingBuffer_BlockingNext(t *testing.T) {
	rb := RingN[int](2)

	done := make(chan int)
	go func() {
		v, _ := rb.Next()
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("Next returned before Add")
	case <-time.After(20 * time.Millisecond):
	}

	rb.Add(42)
	select {
	case v := <-done:
		if v != 42 {
			t.Fatalf("Next() = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not wake after Add")
	}
}

func TestRingBuffer_Close(t *testing.T) {
	rb := RingN[int](2)
	rb.Add(1)
	rb.Close()

	if _, err := rb.Add(2); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Add error = %v, want io.ErrClosedPipe", err)
	}
	if _, err := rb.Next(); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Next error = %v, want io.ErrClosedPipe", err)
	}
}
