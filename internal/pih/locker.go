// Package pih serializes the per-supplier read-compare-persist span of the
// clearance pipeline so two concurrent submissions from the same company
// cannot both observe the same "previous invoice hash" and both pass
// verification (SPEC_FULL.md §5).
package pih

import "sync"

// Locker hands out one *sync.Mutex per company_id, created lazily. It is
// process-local: a multi-instance deployment would need a database-level
// serialization strategy instead (see DESIGN.md).
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocker returns a ready-to-use Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the caller holds the per-company critical section for
// companyID. The returned func releases it; callers must defer it.
func (l *Locker) Lock(companyID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[companyID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[companyID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
