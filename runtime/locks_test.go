package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("chat-42")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	req.Equal(100, counter)
}

func TestKeyedMutex_DifferentShardsDoNotBlockEachOther(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	// Given two keys that provably live on different shards
	held, free := "held", "free-0"
	for i := 1; locks.shardOf(held) == locks.shardOf(free); i++ {
		free = "free-" + string(rune('0'+i))
	}

	unlock := locks.Lock(held)
	defer unlock()

	// When the other shard is locked while the first is held
	released := make(chan struct{})
	go func() {
		u := locks.Lock(free)
		u()
		close(released)
	}()

	// Then it proceeds without waiting for the first
	select {
	case <-released:
	case <-time.After(time.Second):
		req.Fail("independent shard was blocked")
	}
}

func TestKeyedMutex_UnlockAllowsReacquisition(t *testing.T) {
	locks := NewKeyedMutex()

	unlock := locks.Lock("key")
	unlock()

	// Re-acquiring after unlock must not deadlock
	unlock = locks.Lock("key")
	unlock()
}
