package mover

import (
	"errors"
	"io/fs"
	"os"
)

// checkThenRename is the portable no-clobber rename. A file appearing at dst
// between the Lstat and the rename is overwritten.
func checkThenRename(src, dst string) error {
	_, err := os.Lstat(dst)
	if err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}
