//go:generate mockgen -destination=./mocks/store.go -package=mocks . Store

package cache

import "os"

// Producer materializes the content for a cache entry when no valid entry
// exists. It receives the physical path the entry will live at and may either
// return the content via Bytes, or write the file at that path itself and
// return Written. A producer error propagates to the GetOrCreate caller
// unchanged; no retry is attempted.
type Producer func(path string) (Result, error)

// Result is the tagged outcome of a Producer invocation.
type Result struct {
	data    []byte
	written bool
}

// Bytes wraps produced content that the store persists itself.
func Bytes(data []byte) Result {
	return Result{data: data}
}

// Written signals that the producer wrote the entry file directly and any
// returned content should be discarded.
func Written() Result {
	return Result{written: true}
}

// Store defines the interface for cache store operations.
type Store interface {
	// Exists reports whether a valid entry is stored under key.
	Exists(key string, conds Conditions) (bool, error)

	// Get returns the stored bytes if a valid entry exists. A miss is not an
	// error; it is reported through the boolean.
	Get(key string, conds Conditions) ([]byte, bool, error)

	// Set writes data under key, overwriting any existing entry, and returns
	// the physical path the entry was written to.
	Set(key string, data []byte) (string, error)

	// GetOrCreate returns the stored bytes if a valid entry exists, otherwise
	// removes any stale entry, invokes produce and stores its outcome.
	GetOrCreate(key string, conds Conditions, produce Producer) ([]byte, error)

	// GetOrCreatePath behaves like GetOrCreate but returns the entry's path
	// instead of its content. The actual flag selects the physical storage
	// path over the public one.
	GetOrCreatePath(key string, conds Conditions, produce Producer, actual bool) (string, error)

	// Path returns the public path for key without touching the filesystem.
	Path(key string) string

	// ActualPath returns the physical storage path for key without touching
	// the filesystem.
	ActualPath(key string) string

	// Chmod recursively re-applies permission modes to the stored tree and
	// returns the number of entries whose mode could not be changed.
	Chmod(dirMode, fileMode os.FileMode) (int, error)

	// Info returns entry count and total size of the stored tree.
	Info() (*Info, error)

	// Clean removes every stored entry and returns the bytes freed.
	Clean() (int64, error)

	// Directory returns the public cache directory.
	Directory() string
}

// Info describes the current on-disk state of a store.
type Info struct {
	Directory string
	Entries   int
	TotalSize int64
}
