package cache

import "fmt"

// Common cache errors.
var (
	// ErrEmptyKey is returned when an operation receives an empty cache key.
	ErrEmptyKey = fmt.Errorf("cache key cannot be empty")

	// ErrEmptyDirectory is returned when a store is created without a directory.
	ErrEmptyDirectory = fmt.Errorf("cache directory cannot be empty")

	// ErrShardDepth is returned when a store is configured with a negative shard depth.
	ErrShardDepth = fmt.Errorf("shard depth cannot be negative")

	// ErrUnsupportedCondition is returned when a condition set names a kind the
	// store does not understand. Unknown kinds are never silently ignored.
	ErrUnsupportedCondition = fmt.Errorf("unsupported cache condition")

	// ErrConditionValue is returned when a condition value has an unusable type.
	ErrConditionValue = fmt.Errorf("invalid cache condition value")

	// ErrInvalidMode is returned when Chmod receives bits outside the permission mask.
	ErrInvalidMode = fmt.Errorf("invalid permission mode")
)
