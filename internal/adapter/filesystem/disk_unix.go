//go:build !windows
// +build !windows

package filesystem

import (
	"fmt"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
)

// FreeBytes returns the space available to unprivileged users on the
// filesystem holding path
func (m *Manager) FreeBytes(path string) (uint64, error) {
	if _, ok := m.fs.(*afero.OsFs); !ok {
		return 0, errSpaceUnavailable
	}

	dir := filepath.Dir(path)
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("failed to get disk stats: %w", err)
	}

	return stat.Bavail * uint64(stat.Bsize), nil
}
