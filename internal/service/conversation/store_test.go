package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreCreatesAndDiscardsState(t *testing.T) {
	store := NewStore()

	store.Do("27821234567", func(st *State) {
		assert.Equal(t, StepNone, st.Step)
		st.Step = StepMainMenu
	})
	assert.Equal(t, StepMainMenu, store.Peek("27821234567").Step)

	// Leaving the state reset drops the entry entirely.
	store.Do("27821234567", func(st *State) {
		st.Reset()
	})
	assert.Equal(t, StepNone, store.Peek("27821234567").Step)
}

func TestStoreSerializesPerKey(t *testing.T) {
	store := NewStore()
	const workers = 16

	var wg sync.WaitGroup
	inside := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Do("same-key", func(st *State) {
				// Only one goroutine may be in here at a time; unguarded
				// increments stay race-free only under that exclusivity.
				inside++
				st.Step = StepMainMenu
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, inside)
}

func TestStoreParallelAcrossCustomers(t *testing.T) {
	store := NewStore()

	keyA := "customer-a"
	keyB := ""
	for i := 0; keyB == ""; i++ {
		candidate := fmt.Sprintf("customer-%d", i)
		if store.shardFor(candidate) != store.shardFor(keyA) {
			keyB = candidate
		}
	}

	release := make(chan struct{})
	holding := make(chan struct{})
	go store.Do(keyA, func(st *State) {
		close(holding)
		<-release
	})
	<-holding
	defer close(release)

	// A customer on another shard must not be blocked by keyA's handler.
	done := make(chan struct{})
	go func() {
		store.Do(keyB, func(st *State) {
			st.Step = StepMainMenu
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second customer blocked behind first")
	}
}

func TestStoreKeepsCustomersIsolated(t *testing.T) {
	store := NewStore()

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("customer-%d", i)
		store.Do(key, func(st *State) {
			st.Step = StepSelectDate
			st.ServiceName = key
		})
	}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("customer-%d", i)
		st := store.Peek(key)
		assert.Equal(t, StepSelectDate, st.Step)
		assert.Equal(t, key, st.ServiceName)
	}
}
