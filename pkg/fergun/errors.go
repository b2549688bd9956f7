package fergun

import "errors"

var (
	// ErrInvalidCacheConfig indicates a command cache configured with an unusable capacity.
	ErrInvalidCacheConfig = errors.New("fergun: invalid cache configuration")
	// ErrCacheClosed indicates a second teardown of an already-closed cache.
	ErrCacheClosed = errors.New("fergun: cache already closed")
	// ErrMessageNotFound indicates the gateway no longer knows the requested message.
	ErrMessageNotFound = errors.New("fergun: message not found")
	// ErrInvalidRequest indicates an outbound request that fails protocol invariants.
	ErrInvalidRequest = errors.New("fergun: invalid outbound request")
)
