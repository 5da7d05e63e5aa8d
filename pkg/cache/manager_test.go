package cache_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/glorpus-work/fcache/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ...cache.Option) *cache.Manager {
	t.Helper()
	mgr, err := cache.NewManager(t.TempDir(), opts...)
	require.NoError(t, err)
	return mgr
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name        string
		directory   string
		opts        []cache.Option
		expectError error
	}{
		{
			name:      "valid directory",
			directory: t.TempDir(),
		},
		{
			name:        "empty directory",
			directory:   "",
			expectError: cache.ErrEmptyDirectory,
		},
		{
			name:        "negative shard depth",
			directory:   t.TempDir(),
			opts:        []cache.Option{cache.WithShardDepth(-1)},
			expectError: cache.ErrShardDepth,
		},
		{
			name:      "zero shard depth",
			directory: t.TempDir(),
			opts:      []cache.Option{cache.WithShardDepth(0)},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			mgr, err := cache.NewManager(testCase.directory, testCase.opts...)

			if testCase.expectError != nil {
				require.ErrorIs(t, err, testCase.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.directory, mgr.Directory())
		})
	}
}

func TestPath_ShardSegments(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		depth    int
		fragment string
	}{
		{"key longer than depth", "abcdef", 5, "a/b/c/d/e"},
		{"key shorter than depth", "ab", 5, "a/b"},
		{"key equal to depth", "abc", 3, "a/b/c"},
		{"single character key", "x", 3, "x"},
		{"sharding disabled", "abcdef", 0, ""},
		{"depth one", "abcdef", 1, "a"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			dir := t.TempDir()
			mgr, err := cache.NewManager(dir, cache.WithShardDepth(testCase.depth))
			require.NoError(t, err)

			expected := filepath.Join(dir, filepath.FromSlash(testCase.fragment), testCase.key)
			assert.Equal(t, expected, mgr.Path(testCase.key))
			assert.Equal(t, expected, mgr.ActualPath(testCase.key))

			// Every shard segment is a single character of the key, in order.
			rel, err := filepath.Rel(dir, mgr.Path(testCase.key))
			require.NoError(t, err)
			segments := strings.Split(filepath.ToSlash(rel), "/")
			require.Equal(t, testCase.key, segments[len(segments)-1])
			for i, segment := range segments[:len(segments)-1] {
				assert.Equal(t, string(testCase.key[i]), segment)
			}
		})
	}
}

func TestPath_ActualDirectoryOverride(t *testing.T) {
	public := t.TempDir()
	actual := t.TempDir()
	mgr, err := cache.NewManager(public, cache.WithActualDirectory(actual))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(mgr.Path("abc"), public))
	assert.True(t, strings.HasPrefix(mgr.ActualPath("abc"), actual))

	// Entries are stored under the actual directory.
	path, err := mgr.Set("abc", []byte("data"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, actual))
	assert.FileExists(t, path)
}

func TestSetGetRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	payload := []byte("hello cache")
	path, err := mgr.Set("greeting.txt", payload)
	require.NoError(t, err)
	assert.FileExists(t, path)

	data, ok, err := mgr.Get("greeting.txt", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, data)
}

func TestSet_OverwritesExistingEntry(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.Set("key", []byte("first"))
	require.NoError(t, err)
	_, err = mgr.Set("key", []byte("second"))
	require.NoError(t, err)

	data, ok, err := mgr.Get("key", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), data)
}

func TestGet_MissingEntry(t *testing.T) {
	mgr := newTestManager(t)

	data, ok, err := mgr.Get("never-written", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestSet_AppliesFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	mgr := newTestManager(t, cache.WithFileMode(0o600))

	path, err := mgr.Set("secret", []byte("data"))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEmptyKey(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.Set("", []byte("data"))
	require.ErrorIs(t, err, cache.ErrEmptyKey)

	_, err = mgr.Exists("", nil)
	require.ErrorIs(t, err, cache.ErrEmptyKey)

	_, _, err = mgr.Get("", nil)
	require.ErrorIs(t, err, cache.ErrEmptyKey)

	_, err = mgr.GetOrCreate("", nil, func(string) (cache.Result, error) {
		return cache.Bytes(nil), nil
	})
	require.ErrorIs(t, err, cache.ErrEmptyKey)
}

func TestGetOrCreate_ProducerReturnsBytes(t *testing.T) {
	mgr := newTestManager(t)

	calls := 0
	produce := func(path string) (cache.Result, error) {
		calls++
		return cache.Bytes([]byte("produced")), nil
	}

	data, err := mgr.GetOrCreate("entry", nil, produce)
	require.NoError(t, err)
	assert.Equal(t, []byte("produced"), data)
	assert.Equal(t, 1, calls)

	// The entry is now stored on disk.
	stored, err := os.ReadFile(mgr.ActualPath("entry"))
	require.NoError(t, err)
	assert.Equal(t, []byte("produced"), stored)

	// A second call finds the valid entry and does not re-invoke the producer.
	data, err = mgr.GetOrCreate("entry", nil, produce)
	require.NoError(t, err)
	assert.Equal(t, []byte("produced"), data)
	assert.Equal(t, 1, calls)
}

func TestGetOrCreate_ProducerWritesDirectly(t *testing.T) {
	mgr := newTestManager(t)

	produce := func(path string) (cache.Result, error) {
		require.NoError(t, os.WriteFile(path, []byte("streamed to disk"), 0o644))
		return cache.Written(), nil
	}

	data, err := mgr.GetOrCreate("entry", nil, produce)
	require.NoError(t, err)
	assert.Equal(t, []byte("streamed to disk"), data)
}

func TestGetOrCreate_DirectWriteBeatsReturnValue(t *testing.T) {
	mgr := newTestManager(t)

	// A producer that writes the file and still returns unrelated bytes: the
	// file wins, the return value is discarded.
	produce := func(path string) (cache.Result, error) {
		require.NoError(t, os.WriteFile(path, []byte("on disk"), 0o644))
		return cache.Bytes([]byte("unrelated")), nil
	}

	data, err := mgr.GetOrCreate("entry", nil, produce)
	require.NoError(t, err)
	assert.Equal(t, []byte("on disk"), data)
}

func TestGetOrCreate_StaleEntryReplaced(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.Set("entry", []byte("old"))
	require.NoError(t, err)

	// min_size larger than the stored entry marks it stale.
	conds := cache.Conditions{cache.CondMinSize: int64(100)}
	data, err := mgr.GetOrCreate("entry", conds, func(string) (cache.Result, error) {
		return cache.Bytes([]byte("new and much longer content for the minimum size to pass later reads")), nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, []byte("old"), data)
}

func TestGetOrCreate_ProducerErrorPropagates(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.Set("entry", []byte("stale"))
	require.NoError(t, err)

	conds := cache.Conditions{cache.CondMinSize: int64(100)}
	wantErr := assert.AnError
	_, err = mgr.GetOrCreate("entry", conds, func(string) (cache.Result, error) {
		return cache.Result{}, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// The stale entry was removed before the producer ran and stays absent.
	assert.NoFileExists(t, mgr.ActualPath("entry"))
}

func TestGetOrCreate_AppliesFileModeToDirectWrite(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	mgr := newTestManager(t, cache.WithFileMode(0o640))

	_, err := mgr.GetOrCreate("entry", nil, func(path string) (cache.Result, error) {
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o666))
		return cache.Written(), nil
	})
	require.NoError(t, err)

	info, err := os.Stat(mgr.ActualPath("entry"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestGetOrCreatePath(t *testing.T) {
	public := t.TempDir()
	actual := t.TempDir()
	mgr, err := cache.NewManager(public, cache.WithActualDirectory(actual))
	require.NoError(t, err)

	produce := func(string) (cache.Result, error) {
		return cache.Bytes([]byte("data")), nil
	}

	publicPath, err := mgr.GetOrCreatePath("entry", nil, produce, false)
	require.NoError(t, err)
	assert.Equal(t, mgr.Path("entry"), publicPath)

	actualPath, err := mgr.GetOrCreatePath("entry", nil, produce, true)
	require.NoError(t, err)
	assert.Equal(t, mgr.ActualPath("entry"), actualPath)
	assert.FileExists(t, actualPath)
}

func TestChmod(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	mgr := newTestManager(t)
	_, err := mgr.Set("alpha", []byte("a"))
	require.NoError(t, err)
	_, err = mgr.Set("bravo", []byte("b"))
	require.NoError(t, err)

	failures, err := mgr.Chmod(0o750, 0o640)
	require.NoError(t, err)
	assert.Zero(t, failures)

	info, err := os.Stat(mgr.ActualPath("alpha"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(mgr.ActualPath("alpha")))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), dirInfo.Mode().Perm())
}

func TestChmod_NoModes(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Set("alpha", []byte("a"))
	require.NoError(t, err)

	before, err := os.Stat(mgr.ActualPath("alpha"))
	require.NoError(t, err)

	failures, err := mgr.Chmod(0, 0)
	require.NoError(t, err)
	assert.Zero(t, failures)

	after, err := os.Stat(mgr.ActualPath("alpha"))
	require.NoError(t, err)
	assert.Equal(t, before.Mode(), after.Mode())
}

func TestChmod_InvalidMode(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.Chmod(os.ModeDir|0o755, 0o644)
	require.ErrorIs(t, err, cache.ErrInvalidMode)

	_, err = mgr.Chmod(0o755, os.ModeSetuid|0o644)
	require.ErrorIs(t, err, cache.ErrInvalidMode)
}

func TestChmod_MissingDirectory(t *testing.T) {
	mgr, err := cache.NewManager(filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)

	failures, err := mgr.Chmod(0o755, 0o644)
	require.NoError(t, err)
	assert.Zero(t, failures)
}

func TestInfo(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Set("alpha", []byte("12345"))
	require.NoError(t, err)
	_, err = mgr.Set("bravo", []byte("123"))
	require.NoError(t, err)

	info, err := mgr.Info()
	require.NoError(t, err)
	assert.Equal(t, mgr.Directory(), info.Directory)
	assert.Equal(t, 2, info.Entries)
	assert.Equal(t, int64(8), info.TotalSize)
}

func TestInfo_EmptyCache(t *testing.T) {
	mgr := newTestManager(t)

	info, err := mgr.Info()
	require.NoError(t, err)
	assert.Zero(t, info.Entries)
	assert.Zero(t, info.TotalSize)
}

func TestClean(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Set("alpha", []byte("12345"))
	require.NoError(t, err)

	freed, err := mgr.Clean()
	require.NoError(t, err)
	assert.Equal(t, int64(5), freed)

	_, ok, err := mgr.Get("alpha", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// The storage directory is recreated empty.
	assert.DirExists(t, mgr.Directory())
}
