package rangecache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLocks(t *testing.T) {
	kl := newKeyLocks()

	unlockA := kl.Lock("a")
	unlockB := kl.Lock("b")
	assert.Equal(t, 2, kl.Len())

	// a second locker of "a" waits for the first.
	acquired := make(chan struct{})
	go func() {
		unlock := kl.Lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("lock on a was acquired twice")
	default:
	}

	unlockA()
	<-acquired
	unlockB()

	assert.Equal(t, 0, kl.Len())
}

func TestKeyLocksCounter(t *testing.T) {
	kl := newKeyLocks()
	n := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock("k")
			defer unlock()
			n++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, n)
	assert.Equal(t, 0, kl.Len())
}
