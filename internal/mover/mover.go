// Package mover relocates files into category folders under a destination root.
package mover

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// Policy decides what happens when the destination name is already taken
type Policy string

const (
	// PolicyFail leaves the source in place and reports ErrDestinationExists.
	PolicyFail Policy = "fail"
	// PolicyOverwrite replaces the existing destination file.
	PolicyOverwrite Policy = "overwrite"
)

// ParsePolicy parses a collision policy name; empty means PolicyFail
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicyOverwrite:
		return PolicyOverwrite, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want %q or %q)", s, PolicyFail, PolicyOverwrite)
	}
}

const dirMode = 0o755

// Outcome records the result of a single move
type Outcome struct {
	OriginalName string
	Category     string
	Source       string
	Destination  string
	Success      bool
	Kind         ErrorKind
	Err          error
}

// Mover moves files into root/<category>/<basename>
type Mover struct {
	root   string
	policy Policy
}

// New creates a mover rooted at root
func New(root string, policy Policy) *Mover {
	if policy == "" {
		policy = PolicyFail
	}
	return &Mover{root: root, policy: policy}
}

// Move relocates src into the category folder, creating the folder first if
// needed. Failures are reported in the outcome and never panic.
func (m *Mover) Move(src, category string) Outcome {
	name := filepath.Base(src)
	dir := filepath.Join(m.root, category)
	dst := filepath.Join(dir, name)

	out := Outcome{
		OriginalName: name,
		Category:     category,
		Source:       src,
		Destination:  dst,
	}

	info, err := os.Lstat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out.fail(KindSourceMissing, src, err)
		}
		return out.fail(KindIO, src, err)
	}
	if info.IsDir() {
		return out.fail(KindIO, src, errors.New("source is a directory"))
	}

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return out.fail(KindDirectoryCreate, dir, err)
	}

	if err := m.relocate(src, dst); err != nil {
		return out.fail(classifyRelocateErr(src, err), dst, err)
	}

	out.Success = true
	return out
}

func (o Outcome) fail(kind ErrorKind, path string, err error) Outcome {
	o.Success = false
	o.Kind = kind
	o.Err = &Error{Kind: kind, Path: path, Err: err}
	return o
}

// classifyRelocateErr maps a rename or copy failure onto an ErrorKind.
// ENOENT is ambiguous between the source and the destination folder
// vanishing, so the source is checked again.
func classifyRelocateErr(src string, err error) ErrorKind {
	switch {
	case errors.Is(err, fs.ErrExist):
		return KindDestinationExists
	case errors.Is(err, fs.ErrNotExist):
		if _, statErr := os.Lstat(src); errors.Is(statErr, fs.ErrNotExist) {
			return KindSourceMissing
		}
		return KindIO
	default:
		return KindIO
	}
}

func (m *Mover) relocate(src, dst string) error {
	var err error
	if m.policy == PolicyOverwrite {
		err = os.Rename(src, dst)
	} else {
		err = renameNoReplace(src, dst)
	}
	if errors.Is(err, syscall.EXDEV) {
		return m.copyAcross(src, dst)
	}
	return err
}

// copyAcross moves src to dst when they live on different filesystems.
// Data goes to a temp file beside dst which is then renamed into place under
// the same collision policy, so dst never holds a partial file.
func (m *Mover) copyAcross(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".inbox-sorter-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return err
	}
	if err = os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return err
	}

	if m.policy == PolicyOverwrite {
		err = os.Rename(tmpName, dst)
	} else {
		err = renameNoReplace(tmpName, dst)
	}
	if err != nil {
		return err
	}

	if rmErr := os.Remove(src); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		return fmt.Errorf("copied to %s but could not remove source: %w", dst, rmErr)
	}
	return nil
}
