package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/vertextoedge/aaxfetch/internal/domain"
	"github.com/vertextoedge/aaxfetch/internal/port"
)

// Manager handles destination file operations on top of an afero filesystem
type Manager struct {
	fs         afero.Fs
	bufferSize int
}

// Ensure Manager implements port.LocalStore and port.SpaceChecker
var (
	_ port.LocalStore   = (*Manager)(nil)
	_ port.SpaceChecker = (*Manager)(nil)
)

var errSpaceUnavailable = errors.New("free space not available for this filesystem")

// NewManager creates a manager on the OS filesystem
func NewManager() *Manager {
	return NewManagerWithFs(afero.NewOsFs(), 0)
}

// NewManagerWithFs creates a manager on fs with a custom digest buffer size
func NewManagerWithFs(fs afero.Fs, bufferSize int) *Manager {
	if bufferSize <= 0 {
		bufferSize = 1024 * 1024 // 1MB default
	}
	return &Manager{
		fs:         fs,
		bufferSize: bufferSize,
	}
}

// Fs returns the underlying filesystem
func (m *Manager) Fs() afero.Fs {
	return m.fs
}

// EnsureDir ensures the directory for a file path exists
func (m *Manager) EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "" || dir == "." {
		return nil
	}
	return m.fs.MkdirAll(dir, 0755)
}

// Extent returns the size of the destination, 0 if it does not exist
func (m *Manager) Extent(path string) (int64, error) {
	info, err := m.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat destination: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s", domain.ErrNotRegularFile, path)
	}
	return info.Size(), nil
}

// OpenAppend opens the destination positioned at offset, which must be its current size
func (m *Manager) OpenAppend(path string, offset int64) (port.AppendFile, error) {
	if err := m.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("failed to create parent dir: %w", err)
	}

	f, err := m.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat destination: %w", err)
	}
	if info.Size() != offset {
		f.Close()
		return nil, fmt.Errorf("%w: on disk %d, planned %d", domain.ErrExtentMismatch, info.Size(), offset)
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek destination: %w", err)
	}

	return f, nil
}

// Truncate creates the destination or cuts it to zero length
func (m *Manager) Truncate(path string) error {
	if err := m.EnsureDir(path); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	f, err := m.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to truncate destination: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync destination: %w", err)
	}
	return f.Close()
}

// Digest hashes the whole destination
func (m *Manager) Digest(path string, algo domain.DigestAlgorithm) ([]byte, error) {
	h, err := domain.NewHasher(algo)
	if err != nil {
		return nil, err
	}

	f, err := m.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination: %w", err)
	}
	defer f.Close()

	buf := make([]byte, m.bufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return nil, fmt.Errorf("failed to hash destination: %w", err)
	}
	return h.Sum(nil), nil
}

// Remove deletes the destination
func (m *Manager) Remove(path string) error {
	if err := m.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
