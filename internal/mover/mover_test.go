package mover

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestMove_CreatesCategoryDirectory(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "cat.jpg")
	writeFile(t, file, "meow")

	_, err := os.Stat(filepath.Join(dst, "Images"))
	require.True(t, os.IsNotExist(err))

	out := New(dst, PolicyFail).Move(file, "Images")

	require.True(t, out.Success, "move failed: %v", out.Err)
	assert.Equal(t, KindNone, out.Kind)
	assert.Equal(t, "cat.jpg", out.OriginalName)
	assert.Equal(t, "Images", out.Category)
	assert.Equal(t, filepath.Join(dst, "Images", "cat.jpg"), out.Destination)
	assert.Equal(t, "meow", readFile(t, out.Destination))
	assert.NoFileExists(t, file)
}

func TestMove_PreservesBasenameCase(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "report.PDF")
	writeFile(t, file, "pdf")

	out := New(dst, PolicyFail).Move(file, "Documents")

	require.True(t, out.Success)
	assert.FileExists(t, filepath.Join(dst, "Documents", "report.PDF"))
}

func TestMove_SourceMissing(t *testing.T) {
	dst := t.TempDir()

	out := New(dst, PolicyFail).Move(filepath.Join(t.TempDir(), "gone.jpg"), "Images")

	assert.False(t, out.Success)
	assert.Equal(t, KindSourceMissing, out.Kind)
	assert.ErrorIs(t, out.Err, ErrSourceMissing)
	assert.NoDirExists(t, filepath.Join(dst, "Images"))
}

func TestMove_DestinationExistsLeavesSource(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "cat.jpg")
	writeFile(t, file, "new")
	writeFile(t, filepath.Join(dst, "Images", "cat.jpg"), "old")

	out := New(dst, PolicyFail).Move(file, "Images")

	assert.False(t, out.Success)
	assert.Equal(t, KindDestinationExists, out.Kind)
	assert.ErrorIs(t, out.Err, ErrDestinationExists)
	assert.Equal(t, "new", readFile(t, file))
	assert.Equal(t, "old", readFile(t, filepath.Join(dst, "Images", "cat.jpg")))
}

func TestMove_OverwritePolicyReplaces(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "cat.jpg")
	writeFile(t, file, "new")
	writeFile(t, filepath.Join(dst, "Images", "cat.jpg"), "old")

	out := New(dst, PolicyOverwrite).Move(file, "Images")

	require.True(t, out.Success, "move failed: %v", out.Err)
	assert.Equal(t, "new", readFile(t, filepath.Join(dst, "Images", "cat.jpg")))
	assert.NoFileExists(t, file)
}

func TestMove_DirectoryCreateError(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "cat.jpg")
	writeFile(t, file, "meow")
	// A regular file where the category folder should be.
	writeFile(t, filepath.Join(dst, "Images"), "not a dir")

	out := New(dst, PolicyFail).Move(file, "Images")

	assert.False(t, out.Success)
	assert.Equal(t, KindDirectoryCreate, out.Kind)
	assert.ErrorIs(t, out.Err, ErrDirectoryCreate)
	assert.FileExists(t, file)
}

func TestMove_OverwriteNeverReplacesDirectory(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "cat.jpg")
	writeFile(t, file, "meow")
	writeFile(t, filepath.Join(dst, "Images", "cat.jpg", "inner"), "x")

	out := New(dst, PolicyOverwrite).Move(file, "Images")

	assert.False(t, out.Success)
	assert.Equal(t, KindDestinationExists, out.Kind)
	assert.FileExists(t, file)
	assert.FileExists(t, filepath.Join(dst, "Images", "cat.jpg", "inner"))
}

func TestClassifyRelocateErr(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.txt")
	writeFile(t, present, "x")

	assert.Equal(t, KindDestinationExists, classifyRelocateErr(present, &os.LinkError{Op: "rename", Err: syscall.EEXIST}))
	assert.Equal(t, KindSourceMissing, classifyRelocateErr(filepath.Join(dir, "gone"), &os.LinkError{Op: "rename", Err: syscall.ENOENT}))
	// Source still there: the destination folder vanished instead.
	assert.Equal(t, KindIO, classifyRelocateErr(present, &os.LinkError{Op: "rename", Err: syscall.ENOENT}))
	assert.Equal(t, KindIO, classifyRelocateErr(present, &os.LinkError{Op: "rename", Err: syscall.ENOSPC}))
}

func TestMove_SourceIsDirectory(t *testing.T) {
	src := t.TempDir()
	dir := filepath.Join(src, "folder.zip")
	require.NoError(t, os.Mkdir(dir, 0o755))

	out := New(t.TempDir(), PolicyFail).Move(dir, "Archives")

	assert.Equal(t, KindIO, out.Kind)
	assert.DirExists(t, dir)
}

func TestCopyAcross(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "song.mp3")
	writeFile(t, file, "la la")
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "Audio"), 0o755))
	target := filepath.Join(dst, "Audio", "song.mp3")

	require.NoError(t, New(dst, PolicyFail).copyAcross(file, target))

	assert.Equal(t, "la la", readFile(t, target))
	assert.NoFileExists(t, file)
	entries, err := os.ReadDir(filepath.Join(dst, "Audio"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestCopyAcross_RespectsFailPolicy(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "song.mp3")
	target := filepath.Join(dst, "song.mp3")
	writeFile(t, file, "new")
	writeFile(t, target, "old")

	err := New(dst, PolicyFail).copyAcross(file, target)

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrExist))
	assert.Equal(t, "old", readFile(t, target))
	assert.Equal(t, "new", readFile(t, file))
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFail, p)

	p, err = ParsePolicy("overwrite")
	require.NoError(t, err)
	assert.Equal(t, PolicyOverwrite, p)

	_, err = ParsePolicy("rename")
	assert.Error(t, err)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindIO, KindOf(errors.New("boom")))
	assert.Equal(t, KindSourceMissing, KindOf(&Error{Kind: KindSourceMissing, Path: "x"}))
	assert.Equal(t, "destination_exists", KindDestinationExists.String())
}
