package conflict

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestResolve_NoConflict(t *testing.T) {
	tmpDir := t.TempDir()

	got, err := Resolve(tmpDir, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "photo.jpg"), got)
}

func TestResolve_SingleConflict(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, filepath.Join(tmpDir, "photo.jpg"))

	got, err := Resolve(tmpDir, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "photo_1.jpg"), got)
}

func TestResolve_SequenceIsGapFree(t *testing.T) {
	tmpDir := t.TempDir()

	// Repeated resolve-then-create yields photo.jpg, photo_1.jpg, photo_2.jpg, ...
	want := []string{"photo.jpg", "photo_1.jpg", "photo_2.jpg", "photo_3.jpg"}
	for _, expected := range want {
		got, err := Resolve(tmpDir, "photo.jpg")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tmpDir, expected), got)

		// The resolved path must not exist at call time.
		_, statErr := os.Stat(got)
		assert.True(t, os.IsNotExist(statErr))

		touch(t, got)
	}
}

func TestResolve_NameAlreadyEndsInCounter(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, filepath.Join(tmpDir, "photo_1.jpg"))

	// No special-casing: the fresh counter is appended to the full stem.
	got, err := Resolve(tmpDir, "photo_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "photo_1_1.jpg"), got)
}

func TestResolve_NoExtension(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, filepath.Join(tmpDir, "archive"))

	got, err := Resolve(tmpDir, "archive")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "archive_1"), got)
}

func TestResolve_ManyConflicts(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, filepath.Join(tmpDir, "doc.pdf"))
	for i := 1; i <= 25; i++ {
		touch(t, filepath.Join(tmpDir, fmt.Sprintf("doc_%d.pdf", i)))
	}

	got, err := Resolve(tmpDir, "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "doc_26.pdf"), got)
}
