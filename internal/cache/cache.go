package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set adds a value to the cache with the specified expiration.
	// If expiration is 0, the item never expires (but may be evicted)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Add stores the value only if the key is not already present and
	// reports whether the store happened. This is the at-most-once
	// primitive used for webhook redelivery suppression.
	Add(ctx context.Context, key string, value interface{}, expiration time.Duration) bool

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes all keys with the given prefix
	DeleteByPrefix(ctx context.Context, prefix string)

	// Flush removes all items from the cache
	Flush(ctx context.Context)
}

// Predefined cache key prefixes for different entity types
const (
	PrefixProcessedEvent = "processed_event:v1:"
	PrefixCustomer       = "customer:v1:"
	PrefixSchedule       = "schedule:v1:"
)

// GenerateKey creates a cache key from a prefix and a set of parameters,
// joined with colons.
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params)+1)
	parts[0] = prefix

	for i, param := range params {
		parts[i+1] = fmt.Sprintf("%v", param)
	}

	return strings.Join(parts, ":")
}
