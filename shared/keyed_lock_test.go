package shared

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	const workers = 50

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.WithLock("yad2|123", func() {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
			})
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d; same-key sections interleaved", counter, workers)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("yad2|1")
	released := make(chan struct{})
	go func() {
		km.WithLock("facebook|1", func() {})
		close(released)
	}()

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("distinct keys must not block each other")
	}
	km.Unlock("yad2|1")
}

func TestKeyedMutexEntryCleanup(t *testing.T) {
	km := NewKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.WithLock("a", func() {})
			km.WithLock("b", func() {})
		}()
	}
	wg.Wait()

	km.mutex.Lock()
	remaining := len(km.locks)
	km.mutex.Unlock()
	if remaining != 0 {
		t.Errorf("%d lock entries remain after all holders released", remaining)
	}
}

func TestKeyedMutexUnlockUnknownKey(t *testing.T) {
	km := NewKeyedMutex()
	// Must not panic or corrupt state.
	km.Unlock("never-locked")
	km.WithLock("never-locked", func() {})
}
