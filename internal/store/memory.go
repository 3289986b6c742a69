package store

import (
	"sort"
	"sync"

	"github.com/jpalmerr/pulseagent"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive records via buffered channels (buffer size 100).
// Records are sent non-blocking; if a subscriber's buffer is full, the record
// is dropped for that subscriber.
type MemoryStore struct {
	mu       sync.RWMutex
	checkIns map[string]Record
	counts   map[string]int

	subMu       sync.RWMutex
	subscribers map[chan Record]struct{}
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkIns:    make(map[string]Record),
		counts:      make(map[string]int),
		subscribers: make(map[chan Record]struct{}),
	}
}

// Add implements [Store].
func (m *MemoryStore) Add(rec Record) {
	m.mu.Lock()
	m.counts[rec.MessageType]++
	if rec.MessageType == pulseagent.MessageCheckIn.String() {
		m.checkIns[rec.Key()] = rec
	}
	m.mu.Unlock()

	m.notifySubscribers(rec)
}

// CheckIns implements [Store].
func (m *MemoryStore) CheckIns() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Record, 0, len(m.checkIns))
	for _, rec := range m.checkIns {
		results = append(results, rec)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Key() < results[j].Key() })
	return results
}

// Counts implements [Store].
func (m *MemoryStore) Counts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// Subscribe implements [Store].
func (m *MemoryStore) Subscribe() <-chan Record {
	ch := make(chan Record, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe implements [Store].
func (m *MemoryStore) Unsubscribe(ch <-chan Record) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers never blocks: a full subscriber misses the record.
func (m *MemoryStore) notifySubscribers(rec Record) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- rec:
		default:
			// subscriber is slow, drop the record
		}
	}
}
