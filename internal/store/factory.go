package store

import (
	"fmt"
	"time"
)

// New builds a Store from configuration primitives.
// storeType is "memory" or "sqlite"; path is only used for sqlite.
func New(storeType, path string, ttl time.Duration) (Store, error) {
	switch storeType {
	case "memory", "":
		return NewMemoryStore(ttl), nil
	case "sqlite":
		if path == "" {
			return nil, fmt.Errorf("store.path is required for the sqlite store")
		}
		return NewSQLiteStore(path, ttl)
	default:
		return nil, fmt.Errorf("unknown store type %q (expected memory or sqlite)", storeType)
	}
}
