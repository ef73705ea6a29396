package logging

import (
	"sync"
	"time"
)

// LogEntry is one buffered log record.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent log entries.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	head    int
	count   int
}

// NewRingBuffer creates a ring buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write adds entry, overwriting the oldest one when full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % len(rb.entries)
	if rb.count < len(rb.entries) {
		rb.count++
	}
}

// ReadAll returns all entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.ReadLast(0)
}

// ReadLast returns up to n of the newest entries, oldest first.
// n <= 0 returns everything.
func (rb *RingBuffer) ReadLast(n int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 || n > rb.count {
		n = rb.count
	}
	if n == 0 {
		return nil
	}

	size := len(rb.entries)
	start := (rb.head - n + size) % size
	result := make([]LogEntry, n)
	for i := range n {
		result[i] = rb.entries[(start+i)%size]
	}
	return result
}

// Count returns the number of buffered entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
