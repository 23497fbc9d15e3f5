package cache

import "sync"

var _ Cache = (*MemCache)(nil)

// MemCache is an unbounded map backed Cache, for tests and short replays.
type MemCache struct {
	cache map[string][]byte
	mutex sync.Mutex
	sets  int
}

func NewMemCache() *MemCache {
	return &MemCache{
		cache: make(map[string][]byte),
	}
}

func (mc *MemCache) Get(key string) ([]byte, bool) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	val, ok := mc.cache[key]
	return val, ok
}

func (mc *MemCache) Set(key string, value []byte) bool {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.cache[key] = value
	mc.sets++
	return true
}

func (mc *MemCache) Clear() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.cache = make(map[string][]byte)
}

// Sets is the number of Set calls so far.
func (mc *MemCache) Sets() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	return mc.sets
}
