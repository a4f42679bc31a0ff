package orchestrator

import "sync"

// lockTable serializes cycles per campaign id. Concurrent cycles for the same
// campaign would double-count dedup and could double-post a draft, so a second
// caller is turned away rather than queued.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// tryAcquire returns a release func, or nil if the campaign's lock is held.
func (t *lockTable) tryAcquire(campaignID string) func() {
	t.mu.Lock()
	m, ok := t.locks[campaignID]
	if !ok {
		m = &sync.Mutex{}
		t.locks[campaignID] = m
	}
	t.mu.Unlock()

	if !m.TryLock() {
		return nil
	}
	return m.Unlock
}
