package disklru_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filecachehq/wlru/disklru"
)

func mustOpen(t *testing.T, dir string, capacity uint64, opts ...disklru.Option) *disklru.Cache {
	t.Helper()
	c, err := disklru.Open(dir, capacity, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := mustOpen(t, dir, 1024)

	data := []byte("hello world")
	if err := c.InsertBytes("greeting.txt", data); err != nil {
		t.Fatalf("InsertBytes: %v", err)
	}

	rc, err := c.Get("greeting.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("got %q, want %q", got, data)
	}

	if c.Size() != uint64(len(data)) {
		t.Fatalf("Size: got %d, want %d", c.Size(), len(data))
	}
	if c.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", c.Len())
	}
}

func TestGetMiss(t *testing.T) {
	c := mustOpen(t, t.TempDir(), 1024)

	_, err := c.Get("missing")
	var notInCache *disklru.NotInCache
	if !errors.As(err, &notInCache) {
		t.Fatalf("Get: expected NotInCache, got %v", err)
	}
}

func TestInsertTooLarge(t *testing.T) {
	c := mustOpen(t, t.TempDir(), 4)

	err := c.InsertBytes("big", []byte("too big for this cache"))
	var tooLarge *disklru.TooLarge
	if !errors.As(err, &tooLarge) {
		t.Fatalf("InsertBytes: expected TooLarge, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len: expected 0 after a rejected insert, got %d", c.Len())
	}

	entries, err := os.ReadDir(c.Path())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files left behind, found %v", entries)
	}
}

func TestEvictionUnlinksFile(t *testing.T) {
	dir := t.TempDir()
	c := mustOpen(t, dir, 2)

	if err := c.InsertBytes("a", []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := c.InsertBytes("b", []byte{2}); err != nil {
		t.Fatal(err)
	}
	if err := c.InsertBytes("c", []byte{3}); err != nil {
		t.Fatal(err)
	}

	if c.ContainsKey("a") {
		t.Fatalf("expected %q to have been evicted", "a")
	}
	if _, err := os.Stat(filepath.Join(dir, "a")); !os.IsNotExist(err) {
		t.Fatalf("expected evicted file to be unlinked, stat error: %v", err)
	}
}

func TestInsertNestedKeyCreatesParents(t *testing.T) {
	dir := t.TempDir()
	c := mustOpen(t, dir, 1024)

	if err := c.InsertBytes("a/b/c.txt", []byte("nested")); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "a", "b", "c.txt")); err != nil {
		t.Fatalf("expected nested file to exist: %v", err)
	}
}

func TestInsertReplacesAndPromotes(t *testing.T) {
	c := mustOpen(t, t.TempDir(), 10)

	if err := c.InsertBytes("k", []byte("12345")); err != nil {
		t.Fatal(err)
	}
	if err := c.InsertBytes("k", []byte("6789")); err != nil {
		t.Fatal(err)
	}

	if c.Len() != 1 {
		t.Fatalf("Len: expected 1, got %d", c.Len())
	}
	if c.Size() != 4 {
		t.Fatalf("Size: expected 4, got %d", c.Size())
	}

	rc, err := c.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "6789" {
		t.Fatalf("got %q, want %q", got, "6789")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	c := mustOpen(t, dir, 1024)

	if err := c.InsertBytes("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := c.Remove("k"); err != nil {
		t.Fatal(err)
	}
	if c.ContainsKey("k") {
		t.Fatalf("expected %q to be removed", "k")
	}
	if _, err := os.Stat(filepath.Join(dir, "k")); !os.IsNotExist(err) {
		t.Fatalf("expected file to be unlinked")
	}

	// Removing an absent key is a no-op success.
	if err := c.Remove("does-not-exist"); err != nil {
		t.Fatalf("Remove on absent key: %v", err)
	}
}

func TestInsertWith(t *testing.T) {
	c := mustOpen(t, t.TempDir(), 1024)

	err := c.InsertWith("k", func(f *os.File) error {
		_, werr := f.WriteString("written via callback")
		return werr
	})
	if err != nil {
		t.Fatal(err)
	}

	rc, err := c.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "written via callback" {
		t.Fatalf("got %q", got)
	}
}

func TestInsertWithFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	c := mustOpen(t, dir, 1024)

	boom := errors.New("boom")
	err := c.InsertWith("k", func(f *os.File) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
	if c.ContainsKey("k") {
		t.Fatalf("expected failed insert to leave no entry")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no leftover files, found %v", entries)
	}
}

func TestInsertFile(t *testing.T) {
	srcDir := t.TempDir()
	cacheDir := t.TempDir()

	srcPath := filepath.Join(srcDir, "src")
	if err := os.WriteFile(srcPath, []byte("move me"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := mustOpen(t, cacheDir, 1024)
	if err := c.InsertFile("moved", srcPath); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(srcPath); !os.IsNotExist(err) {
		t.Fatalf("expected source file to be gone after move")
	}

	rc, err := c.Get("moved")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "move me" {
		t.Fatalf("got %q", got)
	}
}

func TestKeyValidationRejectsTraversal(t *testing.T) {
	c := mustOpen(t, t.TempDir(), 1024)

	for _, key := range []string{"../escape", "/abs/path", "a/../../escape"} {
		if err := c.InsertBytes(key, []byte("x")); err == nil {
			t.Fatalf("InsertBytes(%q): expected rejection", key)
		}
	}
}

func TestReopenRecoversExistingFiles(t *testing.T) {
	dir := t.TempDir()
	c := mustOpen(t, dir, 1024)

	if err := c.InsertBytes("a", []byte("11")); err != nil {
		t.Fatal(err)
	}
	if err := c.InsertBytes("b", []byte("222")); err != nil {
		t.Fatal(err)
	}

	reopened := mustOpen(t, dir, 1024)
	if reopened.Len() != 2 {
		t.Fatalf("Len after reopen: got %d, want 2", reopened.Len())
	}
	if reopened.Size() != 5 {
		t.Fatalf("Size after reopen: got %d, want 5", reopened.Size())
	}
	if !reopened.ContainsKey("a") || !reopened.ContainsKey("b") {
		t.Fatalf("expected both keys to survive reopen")
	}
}

func TestReopenTrimsByMtime(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, size int, mtime time.Time) {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}

	base := time.Now().Add(-time.Hour)
	write("oldest", 1, base)
	write("middle", 1, base.Add(time.Second))
	write("newest", 1, base.Add(2*time.Second))

	c := mustOpen(t, dir, 2)

	if c.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", c.Len())
	}
	if c.Size() != 2 {
		t.Fatalf("Size: got %d, want 2", c.Size())
	}
	if c.ContainsKey("oldest") {
		t.Fatalf("expected the oldest-mtime file to have been trimmed")
	}
	if !c.ContainsKey("middle") || !c.ContainsKey("newest") {
		t.Fatalf("expected the two most recent files to survive")
	}
	if _, err := os.Stat(filepath.Join(dir, "oldest")); !os.IsNotExist(err) {
		t.Fatalf("expected the trimmed file to be unlinked from disk")
	}
}

func TestOpenRemovesOversizeFiles(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "huge"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	c := mustOpen(t, dir, 10)

	if c.Len() != 0 {
		t.Fatalf("Len: expected 0, got %d", c.Len())
	}
	if _, err := os.Stat(filepath.Join(dir, "huge")); !os.IsNotExist(err) {
		t.Fatalf("expected oversize file to be removed by Open")
	}
}

func TestGetRefreshesModTime(t *testing.T) {
	dir := t.TempDir()
	c := mustOpen(t, dir, 1024)

	if err := c.InsertBytes("k", []byte("v")); err != nil {
		t.Fatal(err)
	}

	old := time.Now().Add(-time.Hour)
	path := filepath.Join(dir, "k")
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	rc, err := c.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	rc.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().After(old) {
		t.Fatalf("expected Get to refresh mtime, still %v", info.ModTime())
	}
}

func TestCanStoreAndIsEmpty(t *testing.T) {
	c := mustOpen(t, t.TempDir(), 4)

	if !c.IsEmpty() {
		t.Fatalf("expected a freshly opened cache to be empty")
	}
	if !c.CanStore(4) {
		t.Fatalf("CanStore(4): expected true for capacity 4")
	}
	if c.CanStore(5) {
		t.Fatalf("CanStore(5): expected false for capacity 4")
	}
}
