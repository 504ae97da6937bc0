package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ThreadLockManager serializes assistant runs within this process. Locks are
// keyed per user, not per thread: a user owns at most one thread, and a failed
// thread can be swapped for a fresh one mid-run, which must not release the
// serialization. The provider allows a single active run per thread, and
// interleaved writes to one thread's messages would corrupt the stream
// accounting.
type ThreadLockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewThreadLockManager() *ThreadLockManager {
	return &ThreadLockManager{locks: make(map[string]*sync.Mutex)}
}

func (m *ThreadLockManager) getLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] == nil {
		m.locks[key] = &sync.Mutex{}
	}
	return m.locks[key]
}

// TryLock attempts to acquire the key's lock within the timeout.
func (m *ThreadLockManager) TryLock(ctx context.Context, key string, timeout time.Duration) error {
	lock := m.getLock(key)

	done := make(chan struct{})
	go func() {
		lock.Lock()
		close(done)
	}()

	// on abandonment the pending acquire is released once it lands
	release := func() {
		go func() {
			<-done
			lock.Unlock()
		}()
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		release()
		return fmt.Errorf("timeout acquiring run lock for %s", key)
	case <-ctx.Done():
		release()
		return ctx.Err()
	}
}

func (m *ThreadLockManager) Unlock(key string) {
	m.getLock(key).Unlock()
}
