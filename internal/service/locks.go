package service

import (
	"sync"

	"github.com/google/uuid"
)

// queueLocks serialises mutations per queue id. Operator commands and
// machine telemetry both funnel through these, so a read-shift-write
// sequence on one queue can never interleave with another. Entries are
// never evicted; the map is bounded by the number of queues ever touched.
type queueLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newQueueLocks() *queueLocks {
	return &queueLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lock acquires the mutex for the given queue and returns its unlock func.
func (l *queueLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
