package drv_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llir-opt/internal/drv"
)

func TestRunBackendSucceedsOnZeroExit(t *testing.T) {
	res, err := drv.RunBackend("true", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Signaled)
}

func TestRunBackendReportsNonZeroExit(t *testing.T) {
	res, err := drv.RunBackend("false", nil, nil, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.NotEqual(t, 0, res.ExitCode)
}

func TestRunBackendReportsSpawnFailure(t *testing.T) {
	_, err := drv.RunBackend("/no/such/backend-binary", nil, nil, nil)
	require.Error(t, err)
}

func TestSaveSnapshotWritesUniquelyNamedFile(t *testing.T) {
	dir := t.TempDir()
	p1, err := drv.SaveSnapshot(dir, []byte("blob one"))
	require.NoError(t, err)
	p2, err := drv.SaveSnapshot(dir, []byte("blob two"))
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "blob one", string(b1))
}

func TestTempFileAndCleanupOnSuccess(t *testing.T) {
	dir := t.TempDir()
	f, err := drv.TempFile(dir, "llir-opt-*.tmp")
	require.NoError(t, err)
	path := f.Name()
	assert.Equal(t, dir, filepath.Dir(path))

	require.NoError(t, drv.CleanupOnSuccess(f))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
