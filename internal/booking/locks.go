package booking

import "sync"

// lockTable hands out one mutex per lab ID. Serializing writers per lab
// is what upholds the no-double-booking invariant: the availability
// re-check and the insert happen under the same lock, so of two
// concurrent requests for overlapping time only the first to enter the
// critical section can commit. Readers never take these locks.
type lockTable struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[uint64]*sync.Mutex)}
}

// forLab returns the mutex guarding writes for the given lab, creating
// it on first use. Locks are never removed; the table grows with the
// number of labs, which is small.
func (t *lockTable) forLab(labID uint64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[labID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[labID] = l
	}
	return l
}
