package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_TempArtifacts(t *testing.T) {
	m, err := NewMatcher(nil)
	require.NoError(t, err)

	for _, name := range []string{
		"download.tmp",
		"DOWNLOAD.TMP",
		"archive.download.tmp",
		"/inbox/x.Tmp",
		"~lock",
		"~$report.docx",
		".tmp",
	} {
		assert.True(t, m.IsTempArtifact(name), name)
		assert.True(t, m.IsIgnored(name), name)
	}

	for _, name := range []string{"cat.jpg", "tmp", "notes.tmpl", "a~b.txt", "/dir~/file.txt"} {
		assert.False(t, m.IsTempArtifact(name), name)
		assert.False(t, m.IsIgnored(name), name)
	}
}

func TestMatcher_UserPatterns(t *testing.T) {
	m, err := NewMatcher([]string{
		"# partial downloads",
		"*.crdownload",
		"",
		"  *.PART  ",
		".DS_Store",
	})
	require.NoError(t, err)

	assert.True(t, m.IsIgnored("/inbox/movie.mkv.crdownload"))
	assert.True(t, m.IsIgnored("movie.mkv.part"))
	assert.True(t, m.IsIgnored(".ds_store"))
	assert.False(t, m.IsTempArtifact("movie.mkv.part"))
	assert.False(t, m.IsIgnored("movie.mkv"))
}

func TestMatcher_InvalidPattern(t *testing.T) {
	_, err := NewMatcher([]string{"[unclosed"})
	assert.Error(t, err)
}
