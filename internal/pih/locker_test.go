package pih_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/zatca-gateway/internal/pih"
)

// TestLocker_SerializesSameCompany verifies that two concurrent callers for
// the same company never hold the critical section simultaneously.
func TestLocker_SerializesSameCompany(t *testing.T) {
	l := pih.NewLocker()
	var inCriticalSection int32
	var overlapDetected int32

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("company-a")
			defer unlock()

			if atomic.AddInt32(&inCriticalSection, 1) > 1 {
				atomic.StoreInt32(&overlapDetected, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inCriticalSection, -1)
		}()
	}
	wg.Wait()

	assert.Zero(t, overlapDetected, "two holders of the same company's lock must never overlap")
}

// TestLocker_DifferentCompaniesDoNotBlockEachOther verifies independent
// companies can proceed concurrently.
func TestLocker_DifferentCompaniesDoNotBlockEachOther(t *testing.T) {
	l := pih.NewLocker()

	unlockA := l.Lock("company-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("company-b")
		defer unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a different company's lock must not be blocked by company-a's holder")
	}
}
