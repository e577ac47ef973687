package instance

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "sorter.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, path, first.Path())

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, first.Release())

	again, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}
