package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockThenCheck(t *testing.T) {
	path := writeConfig(t, validYAML)

	require.NoError(t, Lock(path))
	assert.NoError(t, Check(path))

	// Manifest permissions stay operator-only.
	info, err := os.Stat(filepath.Join(filepath.Dir(path), ".checksums"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCheck_DetectsModification(t *testing.T) {
	path := writeConfig(t, validYAML)
	require.NoError(t, Lock(path))

	require.NoError(t, os.WriteFile(path, []byte(validYAML+"\n# edited\n"), 0o644))

	err := Check(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestCheck_MissingManifest(t *testing.T) {
	path := writeConfig(t, validYAML)

	err := Check(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksums file not found")
}

func TestLock_Relock(t *testing.T) {
	path := writeConfig(t, validYAML)
	require.NoError(t, Lock(path))

	require.NoError(t, os.WriteFile(path, []byte(validYAML+"\n# edited\n"), 0o644))
	require.Error(t, Check(path))

	// Relocking authorizes the new contents.
	require.NoError(t, Lock(path))
	assert.NoError(t, Check(path))
}

func TestComputeBlake3Hash_Deterministic(t *testing.T) {
	path := writeConfig(t, validYAML)

	a, err := ComputeBlake3Hash(path)
	require.NoError(t, err)
	b, err := ComputeBlake3Hash(path)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
