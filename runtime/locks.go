package runtime

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// KeyedMutex serializes the read-then-write sequences of one chat: lazy chat
// creation, ban toggles and read cascades all lock the same key (the
// canonical member-pair key for direct chats, the chat id for groups).
// Keys are hashed onto a fixed set of shards, so unrelated chats rarely
// contend and the lock table never grows.
type KeyedMutex struct {
	shards [lockShards]sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the shard owning the key and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	shard := &k.shards[k.shardOf(key)]
	shard.Lock()
	return shard.Unlock
}

func (k *KeyedMutex) shardOf(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockShards
}
