package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Manager owns the output tree: <root>/<space>/<list>/<file>
type Manager struct {
	outputDir string
}

// NewManager creates a new storage manager, creating the output directory
func NewManager(outputDir string) (*Manager, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// EnsureOutputDir recreates the output directory if it was removed
func (m *Manager) EnsureOutputDir() error {
	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// DestinationPath returns where an attachment of a list in a space is stored.
// Each component is sanitized so it stays a single directory level.
func (m *Manager) DestinationPath(spaceName, listName, fileName string) string {
	return filepath.Join(
		m.outputDir,
		SanitizeComponent(spaceName),
		SanitizeComponent(listName),
		SanitizeComponent(fileName),
	)
}

// SanitizeComponent replaces path separators inside a name with underscores.
// Empty names and dot segments become "_".
func SanitizeComponent(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_").Replace(name)
	switch strings.TrimSpace(name) {
	case "", ".", "..":
		return "_"
	}
	return name
}

// Create opens dest for writing, truncating any existing file and creating
// parent directories
func (m *Manager) Create(dest string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, nil
}

// WriteFile streams r into dest using buf as the copy buffer and returns
// the size of the file on disk afterwards
func (m *Manager) WriteFile(dest string, r io.Reader, buf []byte) (int64, error) {
	out, err := m.Create(dest)
	if err != nil {
		return 0, err
	}

	// Copy data
	_, err = io.CopyBuffer(out, onlyReader{r}, buf)
	closeErr := out.Close()

	if err != nil {
		return 0, fmt.Errorf("failed to write file data: %w", err)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("failed to close file: %w", closeErr)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Size(), nil
}

// Remove deletes dest if present
func (m *Manager) Remove(dest string) error {
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// onlyReader hides WriterTo so io.CopyBuffer really uses the supplied buffer
type onlyReader struct {
	io.Reader
}
