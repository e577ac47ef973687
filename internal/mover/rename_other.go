//go:build !linux

package mover

func renameNoReplace(src, dst string) error {
	return checkThenRename(src, dst)
}
