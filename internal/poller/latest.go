package poller

import "sync"

// Ticket identifies one in-flight request against a Latest slot.
type Ticket uint64

// Latest keeps only the result of the most recently begun request.
// Results from superseded or cancelled requests are rejected on Commit.
type Latest[T any] struct {
	mu    sync.Mutex
	seq   uint64
	value T
	set   bool
}

// Begin starts a request and supersedes all earlier ones.
func (l *Latest[T]) Begin() Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	return Ticket(l.seq)
}

// Commit stores v if ticket is still the newest request.
func (l *Latest[T]) Commit(ticket Ticket, v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if uint64(ticket) != l.seq {
		return false
	}
	l.value = v
	l.set = true
	return true
}

// Invalidate rejects every outstanding ticket. The stored value is kept.
func (l *Latest[T]) Invalidate() {
	l.mu.Lock()
	l.seq++
	l.mu.Unlock()
}

// Get returns the last committed value.
func (l *Latest[T]) Get() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.set
}
