package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/glorpus-work/fcache/pkg/errors"
	"github.com/glorpus-work/fcache/pkg/fsutil"
	"github.com/glorpus-work/fcache/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Manager implements the Store interface against the local filesystem.
//
// Entries are plain files: the key is the filename and its first shardDepth
// bytes become one single-character directory level each, bounding the number
// of files per directory for large caches. The public directory may differ
// from the physical storage directory so that reported paths (e.g. a serving
// path) stay decoupled from where bytes actually live.
type Manager struct {
	dir        string      // public directory reported to callers
	actualDir  string      // physical storage directory
	shardDepth int
	dirMode    os.FileMode // 0 means platform default
	fileMode   os.FileMode // 0 means leave entries as written
}

// Option configures a Manager.
type Option func(*Manager)

// WithActualDirectory stores entries under dir while public paths keep using
// the directory passed to NewManager.
func WithActualDirectory(dir string) Option {
	return func(m *Manager) {
		m.actualDir = dir
	}
}

// WithShardDepth sets the number of single-character directory levels.
// Use 0 to disable sharding.
func WithShardDepth(depth int) Option {
	return func(m *Manager) {
		m.shardDepth = depth
	}
}

// WithDirMode sets the permission mode for created shard directories.
func WithDirMode(mode os.FileMode) Option {
	return func(m *Manager) {
		m.dirMode = mode
	}
}

// WithFileMode sets the permission mode applied to entries after every write.
func WithFileMode(mode os.FileMode) Option {
	return func(m *Manager) {
		m.fileMode = mode
	}
}

// NewManager creates a cache store rooted at dir.
func NewManager(dir string, opts ...Option) (*Manager, error) {
	if dir == "" {
		return nil, ErrEmptyDirectory
	}
	m := &Manager{
		dir:        dir,
		actualDir:  dir,
		shardDepth: DefaultShardDepth,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.shardDepth < 0 {
		return nil, ErrShardDepth
	}
	if m.actualDir == "" {
		m.actualDir = m.dir
	}
	return m, nil
}

// Exists reports whether a valid entry is stored under key.
func (m *Manager) Exists(key string, conds Conditions) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	if err := conds.Validate(); err != nil {
		return false, err
	}
	return evaluate(m.resolvePath(key, true, false), conds), nil
}

// Get returns the stored bytes if a valid entry exists under key.
func (m *Manager) Get(key string, conds Conditions) ([]byte, bool, error) {
	valid, err := m.Exists(key, conds)
	if err != nil {
		return nil, false, err
	}
	if !valid {
		return nil, false, nil
	}
	data, err := os.ReadFile(m.resolvePath(key, true, false))
	if err != nil {
		// The entry was removed between the check and the read; a miss.
		return nil, false, nil
	}
	return data, true, nil
}

// Set writes data under key, overwriting any existing entry, and returns the
// physical path of the entry.
func (m *Manager) Set(key string, data []byte) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	path := m.resolvePath(key, true, true)
	if err := os.WriteFile(path, data, fsutil.FileModeDefault); err != nil {
		return "", errors.Wrapf(err, "failed to write cache entry %q", key)
	}
	if err := m.applyFileMode(path); err != nil {
		return "", err
	}
	return path, nil
}

// GetOrCreate returns the stored bytes if a valid entry exists, otherwise
// removes the stale entry, invokes produce and stores its outcome. The
// producer may return the content or write the entry file itself; the
// filesystem re-check after the call is authoritative either way, so
// producers that stream large payloads to disk never need to buffer them.
func (m *Manager) GetOrCreate(key string, conds Conditions, produce Producer) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if err := conds.Validate(); err != nil {
		return nil, err
	}

	path := m.resolvePath(key, true, true)
	if evaluate(path, conds) {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		// The valid entry vanished underneath us; reproduce it.
	}

	// Best-effort removal of the stale entry before handing the path to the
	// producer.
	_ = fsutil.RemoveIfExists(path)

	result, err := produce(path)
	if err != nil {
		return nil, err
	}

	if fsutil.FileExists(path) {
		if err := m.applyFileMode(path); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read produced cache entry %q", key)
		}
		return data, nil
	}

	if result.written {
		logger.Warn("Producer signaled a direct write but left no file; storing its return value",
			logrus.Fields{"key": key, "path": path})
	}
	if err := os.WriteFile(path, result.data, fsutil.FileModeDefault); err != nil {
		return nil, errors.Wrapf(err, "failed to write cache entry %q", key)
	}
	if err := m.applyFileMode(path); err != nil {
		return nil, err
	}
	return result.data, nil
}

// GetOrCreatePath behaves like GetOrCreate but returns the entry's path. The
// path is recomputed without forcing directory creation a second time.
func (m *Manager) GetOrCreatePath(key string, conds Conditions, produce Producer, actual bool) (string, error) {
	if _, err := m.GetOrCreate(key, conds, produce); err != nil {
		return "", err
	}
	return m.resolvePath(key, actual, false), nil
}

// Path returns the public path for key.
func (m *Manager) Path(key string) string {
	return m.resolvePath(key, false, false)
}

// ActualPath returns the physical storage path for key.
func (m *Manager) ActualPath(key string) string {
	return m.resolvePath(key, true, false)
}

// Chmod recursively re-applies dirMode to directories and fileMode to regular
// files under the storage directory. A zero mode skips entries of that type;
// if both modes are zero the call is a no-op. Individual chmod failures are
// counted and skipped rather than aborting the walk; the count is returned.
func (m *Manager) Chmod(dirMode, fileMode os.FileMode) (int, error) {
	if dirMode == 0 && fileMode == 0 {
		return 0, nil
	}
	if dirMode&^fs.ModePerm != 0 || fileMode&^fs.ModePerm != 0 {
		return 0, fmt.Errorf("%w: modes must contain permission bits only", ErrInvalidMode)
	}
	if !fsutil.DirExists(m.actualDir) {
		return 0, nil
	}

	failures := 0
	_ = filepath.WalkDir(m.actualDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			failures++
			return nil
		}
		mode := fileMode
		if d.IsDir() {
			mode = dirMode
		} else if !d.Type().IsRegular() {
			return nil
		}
		if mode == 0 {
			return nil
		}
		if err := os.Chmod(path, mode); err != nil {
			failures++
		}
		return nil
	})
	return failures, nil
}

// Info returns entry count and total size of the stored tree.
func (m *Manager) Info() (*Info, error) {
	size, count, err := fsutil.DirSizeAndFiles(m.actualDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get cache info")
	}
	return &Info{
		Directory: m.dir,
		Entries:   count,
		TotalSize: size,
	}, nil
}

// Clean removes every stored entry, recreates the empty storage directory and
// returns the bytes freed.
func (m *Manager) Clean() (int64, error) {
	size, _, err := fsutil.DirSizeAndFiles(m.actualDir)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to scan cache directory %s", m.actualDir)
	}
	if err := os.RemoveAll(m.actualDir); err != nil {
		return 0, errors.Wrapf(err, "failed to remove cache directory %s", m.actualDir)
	}
	if err := os.MkdirAll(m.actualDir, m.dirPerm()); err != nil {
		return size, errors.Wrapf(err, "failed to recreate cache directory %s", m.actualDir)
	}
	return size, nil
}

// Directory returns the public cache directory.
func (m *Manager) Directory() string {
	return m.dir
}

// resolvePath maps a key onto its sharded path below the public or actual
// base directory. Directory creation is best-effort on read paths: a failed
// mkdir surfaces through the subsequent stat or read as an ordinary miss,
// while write paths report the failure at the write itself.
func (m *Manager) resolvePath(key string, actual, ensure bool) string {
	base := m.dir
	if actual {
		base = m.actualDir
	}
	dir := filepath.Join(base, shardFragment(key, m.shardDepth))
	if ensure && !fsutil.DirExists(dir) {
		_ = os.MkdirAll(dir, m.dirPerm())
	}
	return filepath.Join(dir, key)
}

// shardFragment builds the directory fragment for a key: one single-character
// level per byte for the first min(len(key), depth) bytes.
func shardFragment(key string, depth int) string {
	if depth > len(key) {
		depth = len(key)
	}
	parts := make([]string, 0, depth)
	for i := 0; i < depth; i++ {
		parts = append(parts, string(key[i]))
	}
	return filepath.Join(parts...)
}

func (m *Manager) dirPerm() os.FileMode {
	if m.dirMode != 0 {
		return m.dirMode
	}
	return fsutil.DirModeDefault
}

func (m *Manager) applyFileMode(path string) error {
	if m.fileMode == 0 {
		return nil
	}
	if err := os.Chmod(path, m.fileMode); err != nil {
		return errors.Wrapf(err, "failed to set mode on %s", path)
	}
	return nil
}
