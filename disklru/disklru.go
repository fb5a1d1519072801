// Package disklru implements a size-bounded, recency-ordered cache of
// files under a single root directory, reconstructed from and kept in
// sync with the filesystem.
package disklru

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/filecachehq/wlru/internal/tempfile"
	"github.com/filecachehq/wlru/memlru"
	"github.com/filecachehq/wlru/metric"
)

// ReadSeekCloser is the handle returned by Get.
type ReadSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}

// Cache is a filesystem-backed LRU cache of files below a root
// directory. It is not safe for concurrent use: callers must serialize
// access to a single writer, as with memlru.Cache. There is no
// background goroutine; every operation blocks on its own filesystem
// syscalls and returns.
type Cache struct {
	root  string
	inner *memlru.Cache[string, uint64]

	logger *log.Logger

	hits, misses, evictions metric.Counter
	evictedBytes            metric.Counter
	sizeGauge, entriesGauge metric.Gauge
}

// Open creates root (and any missing parents) if needed, scans it for
// pre-existing regular files, and reconstructs a Cache bounded to
// capacity bytes from them. Files are replayed oldest-mtime-first, so
// the reconstructed recency order matches their mtimes at the time of
// the previous close. Files individually larger than capacity are
// unlinked; failure to remove one of those is logged, not fatal. A
// root whose total size exceeds capacity is trimmed via the normal
// eviction path.
func Open(root string, capacity uint64, opts ...Option) (*Cache, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &IOError{Op: "resolve root", Err: err}
	}

	c := &Cache{
		root:         absRoot,
		inner:        memlru.WithWeigher[string, uint64](capacity, memlru.FileSize{}),
		logger:       log.Default(),
		hits:         metric.NoOpCounter(),
		misses:       metric.NoOpCounter(),
		evictions:    metric.NoOpCounter(),
		evictedBytes: metric.NoOpCounter(),
		sizeGauge:    metric.NoOpGauge(),
		entriesGauge: metric.NoOpGauge(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, &IOError{Op: "create root", Err: err}
	}

	files, err := scanRoot(absRoot)
	if err != nil {
		return nil, &IOError{Op: "scan root", Err: err}
	}

	for _, f := range files {
		if f.size > capacity {
			abs := filepath.Join(absRoot, f.relPath)
			if err := os.Remove(abs); err != nil {
				c.logger.Printf("disklru: removing oversize file %q (%d bytes): %v", abs, f.size, err)
			}
			continue
		}
		c.evictForSpace(f.size)
		c.inner.Insert(f.relPath, f.size)
		c.reconcileAfterInsert(f.relPath, filepath.Join(absRoot, f.relPath))
	}

	c.refreshGauges()

	return c, nil
}

// CanStore reports whether a file of size bytes could ever fit.
func (c *Cache) CanStore(size uint64) bool {
	return size <= c.inner.Capacity()
}

// ContainsKey reports whether key is present, without touching the
// filesystem or promoting the entry.
func (c *Cache) ContainsKey(key string) bool {
	return c.inner.ContainsKey(key)
}

// Size returns the total size in bytes of all cached files.
func (c *Cache) Size() uint64 { return c.inner.Size() }

// Len returns the number of cached files.
func (c *Cache) Len() int { return c.inner.Len() }

// Capacity returns the configured byte bound.
func (c *Cache) Capacity() uint64 { return c.inner.Capacity() }

// Path returns the absolute root directory this cache stores entries under.
func (c *Cache) Path() string { return c.root }

// IsEmpty reports whether the cache holds no entries.
func (c *Cache) IsEmpty() bool { return c.inner.Len() == 0 }

// InsertBytes stores data under key, replacing any existing entry.
func (c *Cache) InsertBytes(key string, data []byte) error {
	return c.insert(key, uint64(len(data)), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// InsertWith stores the content written by fn under key. The entry's
// size is whatever fn wrote, discovered after fn returns; unlike
// InsertBytes and InsertFile this means an oversized write is only
// detected, and rolled back, once the writer has finished.
func (c *Cache) InsertWith(key string, fn func(f *os.File) error) error {
	return c.insert(key, 0, fn)
}

func (c *Cache) insert(key string, knownSize uint64, write func(f *os.File) error) error {
	if err := validateKey(key); err != nil {
		return err
	}

	dest := filepath.Join(c.root, key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &IOError{Op: "create parent directory", Err: err}
	}

	if knownSize > 0 && knownSize > c.inner.Capacity() {
		return &TooLarge{Size: knownSize, Capacity: c.inner.Capacity()}
	}

	staged, err := tempfile.Create(dest)
	if err != nil {
		return &IOError{Op: "create staging file", Err: err}
	}
	stagedName := staged.Name()

	if err := write(staged); err != nil {
		staged.Close()
		os.Remove(stagedName)
		return &IOError{Op: "write", Err: err}
	}
	if err := staged.Sync(); err != nil {
		staged.Close()
		os.Remove(stagedName)
		return &IOError{Op: "sync", Err: err}
	}
	if err := staged.Close(); err != nil {
		os.Remove(stagedName)
		return &IOError{Op: "close", Err: err}
	}

	info, err := os.Stat(stagedName)
	if err != nil {
		os.Remove(stagedName)
		return &IOError{Op: "stat staged file", Err: err}
	}
	size := uint64(info.Size())

	if size > c.inner.Capacity() {
		os.Remove(stagedName)
		return &TooLarge{Size: size, Capacity: c.inner.Capacity()}
	}

	// Evict siblings before the new file becomes visible at dest, so
	// the two never coexist on disk long enough to overflow capacity.
	c.evictForSpace(size)

	if err := os.Rename(stagedName, dest); err != nil {
		os.Remove(stagedName)
		return &IOError{Op: "rename into place", Err: err}
	}

	c.inner.Insert(key, size)
	c.reconcileAfterInsert(key, dest)
	c.refreshGauges()

	return nil
}

// InsertFile moves the file at srcPath into the cache under key,
// renaming it in place when possible and falling back to a copy when
// srcPath is on a different filesystem.
func (c *Cache) InsertFile(key string, srcPath string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return &IOError{Op: "stat source file", Err: err}
	}
	size := uint64(info.Size())

	if !c.CanStore(size) {
		return &TooLarge{Size: size, Capacity: c.inner.Capacity()}
	}

	dest := filepath.Join(c.root, key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &IOError{Op: "create parent directory", Err: err}
	}

	c.evictForSpace(size)

	if err := os.Rename(srcPath, dest); err != nil {
		c.logger.Printf("disklru: rename %q to %q failed (%v), falling back to copy", srcPath, dest, err)
		if err := copyFile(srcPath, dest); err != nil {
			return &IOError{Op: "copy into place", Err: err}
		}
		if err := os.Remove(srcPath); err != nil {
			c.logger.Printf("disklru: failed to remove source file %q after copy: %v", srcPath, err)
		}
	}

	c.inner.Insert(key, size)
	c.reconcileAfterInsert(key, dest)
	c.refreshGauges()

	return nil
}

// Get opens key for reading, promoting it to the head of the recency
// order and refreshing its access/modification time. It returns
// NotInCache if key is absent. A file that vanished or became
// unreadable out from under the cache surfaces as *IOError, and the
// in-memory entry is left in place; callers that want to reclaim that
// entry must call Remove explicitly.
func (c *Cache) Get(key string) (ReadSeekCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	if _, ok := c.inner.Get(key); !ok {
		c.misses.Inc()
		return nil, &NotInCache{Key: key}
	}

	abs := filepath.Join(c.root, key)

	now := time.Now()
	// Best effort: if the file has vanished this will fail, and so will
	// the Open below, which is what actually surfaces the error.
	_ = os.Chtimes(abs, now, now)

	f, err := os.Open(abs)
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}

	c.hits.Inc()
	return f, nil
}

// Remove deletes key. Absence is a no-op success. A failure to unlink
// the backing file surfaces as *IOError, but the in-memory entry is
// removed regardless.
func (c *Cache) Remove(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, ok := c.inner.Remove(key); !ok {
		return nil
	}
	c.refreshGauges()

	abs := filepath.Join(c.root, key)
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &IOError{Op: "remove", Err: err}
	}
	return nil
}

// evictForSpace evicts from the tail, unlinking each evicted file,
// until there is room for an additional `incoming` bytes. Failure to
// unlink an evicted file is fatal: it implies on-disk state disagrees
// with the bookkeeping, and continuing would compound the drift.
func (c *Cache) evictForSpace(incoming uint64) {
	for c.inner.Size()+incoming > c.inner.Capacity() {
		key, size, ok := c.inner.RemoveLRU()
		if !ok {
			return
		}
		abs := filepath.Join(c.root, key)
		if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Fatalf("disklru: failed to remove evicted file %q: %v", abs, err)
		}
		c.evictions.Inc()
		c.evictedBytes.Add(float64(size))
	}
}

// reconcileAfterInsert unlinks the file just written at dest if memlru
// immediately evicted the entry we recorded for it. This only happens
// for a zero-byte write into a zero-capacity cache: Insert still
// records it, but Cache with capacity 0 self-clears on every mutation,
// so nothing is left to evict it on a later pass.
func (c *Cache) reconcileAfterInsert(key, dest string) {
	if c.inner.ContainsKey(key) {
		return
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Fatalf("disklru: failed to remove self-evicted file %q: %v", dest, err)
	}
}

func (c *Cache) refreshGauges() {
	c.sizeGauge.Set(float64(c.inner.Size()))
	c.entriesGauge.Set(float64(c.inner.Len()))
}

func copyFile(src, dst string) (rErr error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); rErr == nil {
			rErr = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// validateKey rejects path fragments that would resolve outside the
// cache root. The source this package is modelled on neither validates
// nor normalises keys; rejecting traversal here is a deliberate,
// defensible deviation to avoid cache poisoning.
func validateKey(key string) error {
	if key == "" {
		return errors.New("disklru: key must not be empty")
	}
	if filepath.IsAbs(key) {
		return &invalidKeyError{key: key, reason: "must be relative"}
	}
	cleaned := filepath.Clean(key)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return &invalidKeyError{key: key, reason: "escapes the cache root"}
	}
	return nil
}

type invalidKeyError struct {
	key    string
	reason string
}

func (e *invalidKeyError) Error() string {
	return "disklru: invalid key " + strings.TrimSpace(e.key) + ": " + e.reason
}
