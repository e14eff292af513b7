package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images_download")

	manager, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, manager.GetOutputDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDestinationPath(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	got := manager.DestinationPath("Design", "Sprint 1", "mock.png")
	assert.Equal(t, filepath.Join(manager.GetOutputDir(), "Design", "Sprint 1", "mock.png"), got)

	got = manager.DestinationPath("R&D/Hardware", "..", "../../etc/passwd")
	assert.Equal(t, filepath.Join(manager.GetOutputDir(), "R&D_Hardware", "_", ".._.._etc_passwd"), got)
}

func TestSanitizeComponent(t *testing.T) {
	tests := map[string]string{
		"plain.png":   "plain.png",
		"a/b":         "a_b",
		`a\b`:         "a_b",
		"":            "_",
		".":           "_",
		"..":          "_",
		"  ":          "_",
		"with space":  "with space",
		"Ünïcødé.jpg": "Ünïcødé.jpg",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeComponent(in), "input %q", in)
	}
}

func TestWriteFile(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)
	dest := manager.DestinationPath("S", "L", "a.png")

	content := strings.Repeat("x", 20000)
	size, err := manager.WriteFile(dest, strings.NewReader(content), make([]byte, 8192))
	require.NoError(t, err)
	assert.Equal(t, int64(20000), size)
	assert.FileExists(t, dest)

	// Overwrite truncates
	size, err = manager.WriteFile(dest, strings.NewReader("short"), make([]byte, 8192))
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

func TestWriteFileReaderError(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)
	dest := manager.DestinationPath("S", "L", "a.png")

	_, err = manager.WriteFile(dest, &failingReader{}, make([]byte, 8192))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	// Partial file is left for the caller to remove
	assert.FileExists(t, dest)
	require.NoError(t, manager.Remove(dest))
	assert.NoFileExists(t, dest)
	assert.NoError(t, manager.Remove(dest), "removing twice is fine")
}
