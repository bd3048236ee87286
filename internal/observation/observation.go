// Package observation holds the in-memory, append-only log of classified readings.
package observation

import (
	"sync"
	"time"

	"github.com/Lzetgo0/SIC7/internal/classifier"
)

// Reading is one decoded sensor sample, stamped with its arrival time.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

// Observation is a Reading together with the category it was classified into.
type Observation struct {
	Reading
	Predicted classifier.Label `json:"predicted"`
}

// Log is an append-only ordered sequence of observations with a single writer
// and any number of concurrent readers. Readers always get a copy, so they never
// see an append in progress.
//
// A positive capacity makes the log keep only the newest capacity entries.
type Log struct {
	mu       sync.RWMutex
	items    []Observation
	head     int // index of the oldest entry once the ring is full
	capacity int
	total    uint64
}

// New creates a log. capacity <= 0 means unbounded.
func New(capacity int) *Log {
	if capacity < 0 {
		capacity = 0
	}
	l := &Log{capacity: capacity}
	if capacity > 0 {
		l.items = make([]Observation, 0, capacity)
	}
	return l
}

// Append adds o at the end of the log.
func (l *Log) Append(o Observation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	if l.capacity == 0 || len(l.items) < l.capacity {
		l.items = append(l.items, o)
		return
	}
	l.items[l.head] = o
	l.head = (l.head + 1) % l.capacity
}

// Snapshot returns every retained observation in arrival order.
func (l *Log) Snapshot() []Observation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tail(len(l.items))
}

// Tail returns at most the n newest observations in arrival order.
func (l *Log) Tail(n int) []Observation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tail(n)
}

// Last returns the newest observation.
func (l *Log) Last() (Observation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.items) == 0 {
		return Observation{}, false
	}
	return l.items[l.index(len(l.items)-1)], true
}

// Len returns the number of retained observations.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Total returns the number of observations appended since creation, evicted ones included.
func (l *Log) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

func (l *Log) Capacity() int {
	return l.capacity
}

// index maps a logical position (0 = oldest) to a slice index. Caller holds the lock.
func (l *Log) index(i int) int {
	if l.capacity == 0 || len(l.items) < l.capacity {
		return i
	}
	return (l.head + i) % l.capacity
}

// tail copies the n newest entries. Caller holds the lock.
func (l *Log) tail(n int) []Observation {
	size := len(l.items)
	if n > size {
		n = size
	}
	if n <= 0 {
		return []Observation{}
	}
	out := make([]Observation, n)
	for i := 0; i < n; i++ {
		out[i] = l.items[l.index(size-n+i)]
	}
	return out
}
