package cache

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// DefaultFrameCacheBytes bounds the memory used by cached frames.
const DefaultFrameCacheBytes = 64 << 20

var _ Cache = (*FrameCache)(nil)

// FrameCache keeps frames in a ristretto cache, costed by their size in bytes.
// Close must be called once the cache is no longer used.
type FrameCache struct {
	mainCache *ristretto.Cache
}

func NewFrameCache(maxBytes int64) (*FrameCache, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultFrameCacheBytes
	}
	mainCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,   // number of keys to track frequency of
		MaxCost:     maxBytes, // total size of cached frames
		BufferItems: 64,       // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %s", err)
	}

	return &FrameCache{
		mainCache: mainCache,
	}, nil
}

func (fc *FrameCache) Get(key string) ([]byte, bool) {
	val, found := fc.mainCache.Get(key)
	if !found {
		return nil, false
	}
	frame, ok := val.([]byte)
	return frame, ok
}

// Set is applied asynchronously, a following Get may still miss.
func (fc *FrameCache) Set(key string, value []byte) bool {
	return fc.mainCache.Set(key, value, int64(len(value)))
}

// Wait blocks until pending Sets are applied.
func (fc *FrameCache) Wait() {
	fc.mainCache.Wait()
}

func (fc *FrameCache) Clear() {
	fc.mainCache.Clear()
}

func (fc *FrameCache) Close() {
	fc.mainCache.Close()
}
