// Package tempfile creates staging files used to write a cache entry's
// contents before it is made visible at its final path via rename.
package tempfile

import (
	"errors"
	"os"

	"github.com/google/uuid"
)

const flags = os.O_RDWR | os.O_CREATE | os.O_EXCL

// FinalMode is the permission bits a cache entry is given once its
// contents have been fully written.
const FinalMode = 0o644

var errNoTempfile = errors.New("tempfile: failed to create a staging file")

// Create creates a staging file alongside dest (same directory, so a
// later os.Rename onto dest is an atomic same-filesystem move), named
// "<dest>.<random>.tmp". The caller must Close the file, and is
// responsible for either renaming it onto dest or removing it.
func Create(dest string) (*os.File, error) {
	for i := 0; i < 10000; i++ {
		name := dest + "." + uuid.NewString() + ".tmp"
		f, err := os.OpenFile(name, flags, FinalMode)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			continue
		}
		return nil, err
	}
	return nil, errNoTempfile
}
