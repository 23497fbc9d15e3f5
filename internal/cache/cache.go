package cache

// Cache holds encoded frames keyed by their source.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) bool
	Clear()
}
