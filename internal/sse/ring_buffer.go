package sse

import (
	"strconv"
	"sync"
)

const defaultRingBufferSize = 500

// RingBuffer keeps the most recent events so a reconnecting dashboard can
// catch up on codes issued while it was away.
type RingBuffer struct {
	mu       sync.RWMutex
	capacity int
	items    []SSEEvent
	start    int
	size     int
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = defaultRingBufferSize
	}

	return &RingBuffer{
		capacity: capacity,
		items:    make([]SSEEvent, capacity),
	}
}

func (rb *RingBuffer) Push(event SSEEvent) {
	if rb == nil {
		return
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size < rb.capacity {
		idx := (rb.start + rb.size) % rb.capacity
		rb.items[idx] = event
		rb.size++
		return
	}

	rb.items[rb.start] = event
	rb.start = (rb.start + 1) % rb.capacity
}

func (rb *RingBuffer) Len() int {
	if rb == nil {
		return 0
	}

	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Since returns buffered events with a sequence ID greater than lastID.
// An empty or unparsable lastID returns the whole buffer.
func (rb *RingBuffer) Since(lastID string) []SSEEvent {
	if rb == nil {
		return nil
	}

	rb.mu.RLock()
	snapshot := make([]SSEEvent, 0, rb.size)
	for i := 0; i < rb.size; i++ {
		idx := (rb.start + i) % rb.capacity
		snapshot = append(snapshot, rb.items[idx])
	}
	rb.mu.RUnlock()

	if lastID == "" {
		return snapshot
	}

	lastSeq, err := strconv.ParseInt(lastID, 10, 64)
	if err != nil {
		return snapshot
	}

	replay := make([]SSEEvent, 0, len(snapshot))
	for _, event := range snapshot {
		seq, err := strconv.ParseInt(event.ID, 10, 64)
		if err != nil {
			continue
		}
		if seq > lastSeq {
			replay = append(replay, event)
		}
	}

	return replay
}
