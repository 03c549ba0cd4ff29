package domain

import (
	"runtime"
	"sync"
	"testing"
)

func TestLockKey_SerializesAndReleases(t *testing.T) {
	l := NewLedger(nil, nil, nil, nil, nil)

	const workers = 100
	counters := map[string]*int{"a": new(int), "b": new(int)}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		key := "a"
		if i%2 == 1 {
			key = "b"
		}
		go func(key string) {
			defer wg.Done()
			unlock := l.lockKey(key)
			defer unlock()

			// Only the key lock guards this read-modify-write
			v := *counters[key]
			runtime.Gosched()
			*counters[key] = v + 1
		}(key)
	}
	wg.Wait()

	for key, n := range counters {
		if *n != workers/2 {
			t.Errorf("key %s: expected %d increments, got %d", key, workers/2, *n)
		}
	}

	l.keyLocksMu.Lock()
	defer l.keyLocksMu.Unlock()
	if n := len(l.keyLocks); n != 0 {
		t.Errorf("expected released keys to be dropped, %d left", n)
	}
}
