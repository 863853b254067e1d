package types

import "time"

// Cache is the key-value store used by caching aspects.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Set stores value under key. A ttl <= 0 never expires.
	Set(key string, value interface{}, ttl time.Duration) error
	// Get returns the value of key, nil when missing or expired.
	Get(key string) interface{}
	// Has reports whether key holds a live value.
	Has(key string) bool
	// Delete removes key.
	Delete(key string) error
	// DeleteByPrefix removes every key starting with prefix.
	DeleteByPrefix(prefix string) error
	// Len returns the number of stored entries, expired ones included until collected.
	Len() int
}
