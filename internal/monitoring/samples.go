// Package monitoring - samples.go holds recent request samples.
//
// DESIGN: Fixed-capacity FIFO ring. Insertion order is the only order that
// matters; once the ring is full the oldest sample is evicted on write.
// Readers only ever receive copies, never the backing slice.
package monitoring

import (
	"sync"
	"time"
)

// DefaultSampleCapacity bounds the sample ring when no capacity is configured.
const DefaultSampleCapacity = 1000

// SampleStore is a capacity-bounded FIFO ring of request samples.
// Safe for concurrent use.
type SampleStore struct {
	mu   sync.Mutex
	buf  []Sample
	head int // index of the oldest sample
	size int
}

// NewSampleStore creates a store holding at most capacity samples.
// Non-positive capacities fall back to DefaultSampleCapacity.
func NewSampleStore(capacity int) *SampleStore {
	if capacity <= 0 {
		capacity = DefaultSampleCapacity
	}
	return &SampleStore{buf: make([]Sample, capacity)}
}

// Record appends a sample, evicting the oldest one when the ring is full.
// Always succeeds.
func (s *SampleStore) Record(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size < len(s.buf) {
		s.buf[(s.head+s.size)%len(s.buf)] = sample
		s.size++
		return
	}
	// Full: overwrite the oldest slot and advance the head.
	s.buf[s.head] = sample
	s.head = (s.head + 1) % len(s.buf)
}

// Snapshot returns samples with Timestamp >= since, in insertion order.
// A zero since returns all samples. The result is a copy.
func (s *SampleStore) Snapshot(since time.Time) []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Sample, 0, s.size)
	for i := 0; i < s.size; i++ {
		sample := s.buf[(s.head+i)%len(s.buf)]
		if since.IsZero() || !sample.Timestamp.Before(since) {
			out = append(out, sample)
		}
	}
	return out
}

// Len returns the number of stored samples.
func (s *SampleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Capacity returns the maximum number of samples the store holds.
func (s *SampleStore) Capacity() int { return len(s.buf) }

// Clear empties the store.
func (s *SampleStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = 0
	s.size = 0
}
