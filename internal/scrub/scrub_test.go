package scrub

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExiftool puts a fake exiftool script first on PATH so tests never touch
// the real binary.
func stubExiftool(t *testing.T, script string) {
	t.Helper()
	binDir := t.TempDir()
	path := filepath.Join(binDir, "exiftool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func writeTestFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("file body"), 0644))
	return path
}

func TestStrip_Success(t *testing.T) {
	stubExiftool(t, `echo "1 image files updated"`)
	path := writeTestFile(t, "photo.jpg")

	result, err := New().Strip(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, result.Path)
	assert.Equal(t, int64(9), result.FileSize)
	assert.Equal(t, "1 image files updated", result.Output)
}

func TestStrip_UnsupportedExtension(t *testing.T) {
	path := writeTestFile(t, "notes.txt")

	_, err := New().Strip(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedExtension)

	var scrubErr *ScrubError
	assert.ErrorAs(t, err, &scrubErr)
}

func TestStrip_MissingFile(t *testing.T) {
	_, err := New().Strip(context.Background(), "/nonexistent/photo.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStrip_Directory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "album.jpg")
	require.NoError(t, os.Mkdir(dir, 0755))

	_, err := New().Strip(context.Background(), dir)
	var scrubErr *ScrubError
	require.ErrorAs(t, err, &scrubErr)
	assert.Contains(t, scrubErr.Error(), "not a regular file")
}

func TestStrip_ToolExitFailure(t *testing.T) {
	stubExiftool(t, `echo "Error: bad format" >&2; exit 1`)
	path := writeTestFile(t, "photo.jpg")

	_, err := New().Strip(context.Background(), path)
	var scrubErr *ScrubError
	require.ErrorAs(t, err, &scrubErr)
	assert.Equal(t, 1, scrubErr.ExitCode)
	assert.Contains(t, scrubErr.Stderr, "bad format")
}

func TestStrip_ToolMissing(t *testing.T) {
	// Empty PATH: exiftool cannot be found.
	t.Setenv("PATH", t.TempDir())
	path := writeTestFile(t, "photo.jpg")

	_, err := New().Strip(context.Background(), path)
	var scrubErr *ScrubError
	require.ErrorAs(t, err, &scrubErr)
	assert.NotErrorIs(t, err, errors.ErrUnsupported)
}

func TestRead_StripsSourceFileKey(t *testing.T) {
	stubExiftool(t, `echo '[{"SourceFile":"/tmp/photo.jpg","Make":"Canon","Model":"EOS"}]'`)
	path := writeTestFile(t, "photo.jpg")

	metadata, err := New().Read(context.Background(), path, false)
	require.NoError(t, err)
	assert.Equal(t, "Canon", metadata["Make"])
	assert.Equal(t, "EOS", metadata["Model"])
	assert.NotContains(t, metadata, "SourceFile")
}

func TestRead_Grouped(t *testing.T) {
	stubExiftool(t, `
case "$1" in
  -json) ;;
esac
for arg in "$@"; do
  if [ "$arg" = "-G" ]; then
    echo '[{"SourceFile":"x","EXIF:Make":"Canon"}]'
    exit 0
  fi
done
echo '[{"SourceFile":"x","Make":"Canon"}]'`)
	path := writeTestFile(t, "photo.jpg")

	metadata, err := New().Read(context.Background(), path, true)
	require.NoError(t, err)
	assert.Equal(t, "Canon", metadata["EXIF:Make"])
}

func TestRead_UnparsableOutput(t *testing.T) {
	stubExiftool(t, `echo 'not json at all'`)
	path := writeTestFile(t, "photo.jpg")

	_, err := New().Read(context.Background(), path, false)
	var scrubErr *ScrubError
	require.ErrorAs(t, err, &scrubErr)
	assert.Contains(t, scrubErr.Error(), "parse")
}

func TestRead_EmptyArray(t *testing.T) {
	stubExiftool(t, `echo '[]'`)
	path := writeTestFile(t, "photo.jpg")

	metadata, err := New().Read(context.Background(), path, false)
	require.NoError(t, err)
	assert.Empty(t, metadata)
}
