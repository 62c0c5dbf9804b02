package trading

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountLockerSerializesPerAccount(t *testing.T) {
	l := newAccountLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(7)
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, l.entries, "idle accounts are forgotten")
}

func TestAccountLockerIndependentAccounts(t *testing.T) {
	l := newAccountLocker()

	unlockA := l.Lock(1)
	unlockB := l.Lock(2)
	assert.Len(t, l.entries, 2)

	unlockA()
	unlockB()
	assert.Empty(t, l.entries)
}
