package cache

import (
	"fmt"
	"os"

	"github.com/glorpus-work/fcache/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Operation wraps a Store with human-readable maintenance operations for the
// CLI.
type Operation struct {
	store Store
}

// NewOperation creates a new cache operation instance.
func NewOperation(store Store) *Operation {
	return &Operation{store: store}
}

// Clean removes every cached entry and reports the freed space.
func (op *Operation) Clean() (string, error) {
	logger.Debug("Cleaning cache", logrus.Fields{"directory": op.store.Directory()})

	freed, err := op.store.Clean()
	if err != nil {
		return "", fmt.Errorf("failed to clean cache: %w", err)
	}

	if freed == 0 {
		return "No files were removed from the cache.", nil
	}
	return fmt.Sprintf("Successfully cleaned cache. Freed %s of disk space.", formatBytes(freed)), nil
}

// Info returns a human-readable description of the cache state.
func (op *Operation) Info() (string, error) {
	info, err := op.store.Info()
	if err != nil {
		return "", fmt.Errorf("failed to get cache info: %w", err)
	}

	return fmt.Sprintf(`Cache Information:
  Directory:  %s
  Entries:    %d
  Total Size: %s`,
		info.Directory,
		info.Entries,
		formatBytes(info.TotalSize),
	), nil
}

// Chmod re-applies permission modes to the cached tree and reports the result.
func (op *Operation) Chmod(dirMode, fileMode uint32) (string, error) {
	logger.Debug("Re-applying cache permissions", logrus.Fields{
		"dir_mode":  fmt.Sprintf("%#o", dirMode),
		"file_mode": fmt.Sprintf("%#o", fileMode),
	})

	failures, err := op.store.Chmod(toFileMode(dirMode), toFileMode(fileMode))
	if err != nil {
		return "", err
	}
	if failures > 0 {
		return fmt.Sprintf("Re-applied cache permissions with %d failures.", failures), nil
	}
	return "Successfully re-applied cache permissions.", nil
}

// Directory returns the cache directory path.
func (op *Operation) Directory() string {
	return op.store.Directory()
}

func toFileMode(mode uint32) os.FileMode {
	return os.FileMode(mode)
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T", "P", "E"}
	if exp < len(units) {
		return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
	}
	return fmt.Sprintf("%d B", bytes)
}
