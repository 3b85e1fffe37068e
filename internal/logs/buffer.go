package logs

import (
	"sync"

	"github.com/charliek/respawn/internal/constants"
	"github.com/charliek/respawn/internal/domain"
)

// RingBuffer is a fixed-size circular buffer of supervision events
type RingBuffer struct {
	mu       sync.RWMutex
	events   []domain.SupervisionEvent
	head     int // next write position
	count    int
	capacity int
	written  uint64 // events written since creation, including overwritten ones
}

// NewRingBuffer creates a new ring buffer with the given capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = constants.DefaultEventBufferSize
	}
	return &RingBuffer{
		events:   make([]domain.SupervisionEvent, capacity),
		capacity: capacity,
	}
}

// Write adds an event, overwriting the oldest one when full
func (b *RingBuffer) Write(event domain.SupervisionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[b.head] = event
	b.head = (b.head + 1) % b.capacity
	b.written++

	if b.count < b.capacity {
		b.count++
	}
}

// Read returns all events in chronological order
func (b *RingBuffer) Read() []domain.SupervisionEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastLocked(b.count)
}

// ReadLast returns the last n events in chronological order
func (b *RingBuffer) ReadLast(n int) []domain.SupervisionEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastLocked(n)
}

func (b *RingBuffer) lastLocked(n int) []domain.SupervisionEvent {
	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	// head points one past the newest event
	start := (b.head - n + b.capacity) % b.capacity

	result := make([]domain.SupervisionEvent, n)
	for i := 0; i < n; i++ {
		result[i] = b.events[(start+i)%b.capacity]
	}
	return result
}

// Count returns the current number of events in the buffer
func (b *RingBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Written returns how many events were ever written
func (b *RingBuffer) Written() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.written
}

// Capacity returns the maximum capacity of the buffer
func (b *RingBuffer) Capacity() int {
	return b.capacity
}

// Clear removes all events from the buffer
func (b *RingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}
