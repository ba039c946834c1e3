package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/assertions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileUtil(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "redo", "hsb")

	exists, err := PathExists(dir)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, EnsureDir(dir))
	exists, err = PathExists(dir)
	require.NoError(t, err)
	assert.True(t, exists)

	file := filepath.Join(dir, "ib_logfile0")
	require.NoError(t, os.WriteFile(file, make([]byte, 1024), 0644))
	size, err := FileSize(file)
	require.NoError(t, err)
	assert.Empty(t, assertions.ShouldEqual(size, int64(1024)))

	_, err = FileSize(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
