package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build", "nested")
	require.NoError(t, WriteFile(dir, "Token.bin", []byte("6080")))

	b, err := os.ReadFile(filepath.Join(dir, "Token.bin"))
	require.NoError(t, err)
	assert.EqualValues(t, "6080", string(b))

	// Writing again truncates the previous content.
	require.NoError(t, WriteFile(dir, "Token.bin", []byte("60")))
	b, err = os.ReadFile(filepath.Join(dir, "Token.bin"))
	require.NoError(t, err)
	assert.EqualValues(t, "60", string(b))
}

func TestMakeDirectoryOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build"), []byte{}, 0644))
	assert.Error(t, MakeDirectory(filepath.Join(dir, "build")))
	assert.NoError(t, MakeDirectory(dir))
}
