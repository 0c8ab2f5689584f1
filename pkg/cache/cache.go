// Package cache stores converted vector drawables keyed by the fingerprint of
// their sanitized source.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] and
// [MongoCache] for shared deployments, and [NullCache] to disable caching.
// Keys are built by a [Keyer] so that results produced by different
// converter builds never collide.
package cache

import (
	"context"
	"time"
)

// TTLArtifact is how long a converted drawable is kept.
const TTLArtifact = 30 * 24 * time.Hour

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found. An expired
	// entry is a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend connection.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// ArtifactKey returns the key of the drawable converted from the
	// content with the given fingerprint.
	ArtifactKey(fingerprint string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the inputs besides content that change a conversion.
type ArtifactKeyOpts struct {
	// Converter identifies the converter page, usually its entry URL.
	Converter string `json:"converter,omitempty"`

	// Format of the stored artifact ("avd").
	Format string `json:"format,omitempty"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey returns "artifact:" followed by the SHA-256 of the fingerprint
// and options.
func (DefaultKeyer) ArtifactKey(fingerprint string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", fingerprint, opts)
}
