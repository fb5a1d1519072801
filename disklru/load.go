package disklru

import (
	"io/fs"
	"path/filepath"
	"sort"
	"time"
)

type scannedFile struct {
	relPath string
	size    uint64
	mtime   time.Time
}

// scanRoot walks root recursively, returning every regular file found,
// sorted ascending by mtime (oldest first) so that replaying them as
// insertions reconstructs the least-recent-first recency order.
func scanRoot(root string) ([]scannedFile, error) {
	var files []scannedFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, scannedFile{
			relPath: rel,
			size:    uint64(info.Size()),
			mtime:   info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A stable sort preserves filesystem enumeration order among files
	// whose mtimes fall within the same tick, which is as good as any
	// other tie-break: recovered order within a tick is unspecified.
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].mtime.Before(files[j].mtime)
	})

	return files, nil
}
