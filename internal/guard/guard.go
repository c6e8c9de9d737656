// Package guard provides a reader/writer lock that becomes poisoned when a
// writer terminates abnormally (panics or calls runtime.Goexit) while holding it.
//
// Once poisoned, Write and Read refuse to run their callbacks and return
// ErrPoisoned until Recover is called. The data protected by the lock may have
// been left half-updated, so callers decide explicitly whether to carry on.
package guard

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPoisoned is returned when the lock was poisoned by an earlier writer.
var ErrPoisoned = errors.New("lock poisoned by an abnormally terminated writer")

// RWMutex is a poisonable reader/writer lock. The zero value is unlocked and healthy.
// It must not be copied after first use.
type RWMutex struct {
	mu       sync.RWMutex
	poisoned atomic.Bool
}

// Write runs fn while holding the lock exclusively.
// If fn does not return normally the lock is poisoned before it is released
// and the panic continues to unwind.
func (m *RWMutex) Write(fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned.Load() {
		return ErrPoisoned
	}

	completed := false
	defer func() {
		if !completed {
			m.poisoned.Store(true)
		}
	}()

	fn()
	completed = true
	return nil
}

// Read runs fn while holding the lock in shared mode.
// Readers never poison the lock.
func (m *RWMutex) Read(fn func()) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.poisoned.Load() {
		return ErrPoisoned
	}

	fn()
	return nil
}

// Poisoned reports whether the lock is poisoned.
func (m *RWMutex) Poisoned() bool {
	return m.poisoned.Load()
}

// Recover clears the poisoned state.
func (m *RWMutex) Recover() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poisoned.Store(false)
}
