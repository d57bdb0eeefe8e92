package events

import "sync"

// FeedCapacity bounds the in-memory activity feed.
const FeedCapacity = 50

// Feed holds the most recent records, newest first. A single writer prepends;
// readers always see a consistent slice because the backing array is replaced
// on every add, never mutated in place.
type Feed struct {
	mu      sync.RWMutex
	records []Record
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Add prepends a record, dropping the oldest entry once the feed is full. It
// reports false when a record with the same ID is already present.
func (f *Feed) Add(rec Record) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.ID == rec.ID {
			return false
		}
	}
	size := len(f.records) + 1
	if size > FeedCapacity {
		size = FeedCapacity
	}
	next := make([]Record, 0, size)
	next = append(next, rec)
	next = append(next, f.records[:size-1]...)
	f.records = next
	return true
}

// Recent returns a copy of the feed, newest first.
func (f *Feed) Recent() []Record {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Record, len(f.records))
	copy(out, f.records)
	return out
}

// Len reports the number of buffered records.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records)
}

// Clear empties the feed.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
}
