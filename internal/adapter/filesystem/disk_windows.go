//go:build windows
// +build windows

package filesystem

import (
	"fmt"
	"path/filepath"
	"syscall"
	"unsafe"

	"github.com/spf13/afero"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	getDiskFreeSpace = kernel32.NewProc("GetDiskFreeSpaceExW")
)

// FreeBytes returns the space available to the caller on the volume holding path
func (m *Manager) FreeBytes(path string) (uint64, error) {
	if _, ok := m.fs.(*afero.OsFs); !ok {
		return 0, errSpaceUnavailable
	}

	pathPtr, err := syscall.UTF16PtrFromString(filepath.Dir(path))
	if err != nil {
		return 0, fmt.Errorf("failed to convert path: %w", err)
	}

	var freeBytesAvailable, totalNumberOfBytes, totalNumberOfFreeBytes uint64
	ret, _, err := getDiskFreeSpace.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(&freeBytesAvailable)),
		uintptr(unsafe.Pointer(&totalNumberOfBytes)),
		uintptr(unsafe.Pointer(&totalNumberOfFreeBytes)),
	)
	if ret == 0 {
		return 0, fmt.Errorf("failed to get disk stats: %w", err)
	}

	return freeBytesAvailable, nil
}
