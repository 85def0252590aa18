package domain

import "sync"

// DefaultAlertLedgerCapacity is the number of recent alerts kept for suppression
const DefaultAlertLedgerCapacity = 50

// ProcessedLedger tracks message keys that were already claimed by a worker.
// A claimed key is never released, so a message is processed at most once per run.
// There is no eviction; a restart starts with a fresh ledger.
type ProcessedLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewProcessedLedger creates an empty ledger
func NewProcessedLedger() *ProcessedLedger {
	return &ProcessedLedger{seen: make(map[string]struct{})}
}

// Claim marks the key as processed. It returns false if the key was already claimed.
func (l *ProcessedLedger) Claim(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[key]; ok {
		return false
	}
	l.seen[key] = struct{}{}
	return true
}

// Seen checks whether the key was claimed
func (l *ProcessedLedger) Seen(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[key]
	return ok
}

// Len returns the number of claimed keys
func (l *ProcessedLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// AlertLedger is a fixed-capacity FIFO of rendered alert strings.
// Inserting into a full ledger evicts the oldest entry.
type AlertLedger struct {
	mu       sync.Mutex
	capacity int
	ring     []string
	head     int // index of the oldest entry
	size     int
	index    map[string]struct{}
}

// NewAlertLedger creates a ledger; non-positive capacity falls back to the default
func NewAlertLedger(capacity int) *AlertLedger {
	if capacity <= 0 {
		capacity = DefaultAlertLedgerCapacity
	}
	return &AlertLedger{
		capacity: capacity,
		ring:     make([]string, capacity),
		index:    make(map[string]struct{}, capacity),
	}
}

// ContainsOrAdd reports whether the alert is resident; when it is not, the alert
// is inserted in the same critical section.
func (l *AlertLedger) ContainsOrAdd(alert string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[alert]; ok {
		return true
	}

	if l.size == l.capacity {
		oldest := l.ring[l.head]
		delete(l.index, oldest)
		l.ring[l.head] = alert
		l.head = (l.head + 1) % l.capacity
	} else {
		l.ring[(l.head+l.size)%l.capacity] = alert
		l.size++
	}
	l.index[alert] = struct{}{}
	return false
}

// Contains checks whether the alert is resident
func (l *AlertLedger) Contains(alert string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.index[alert]
	return ok
}

// Len returns the number of resident alerts
func (l *AlertLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Capacity returns the configured capacity
func (l *AlertLedger) Capacity() int {
	return l.capacity
}

// Entries returns resident alerts, oldest first
func (l *AlertLedger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, l.ring[(l.head+i)%l.capacity])
	}
	return out
}
