package port

import (
	"io"

	"github.com/vertextoedge/aaxfetch/internal/domain"
)

// AppendFile is a destination opened for appending at its current end
type AppendFile interface {
	io.Writer

	// Sync flushes written bytes to stable storage
	Sync() error

	// Truncate cuts the file back to size
	Truncate(size int64) error

	Close() error
}

// LocalStore defines the destination file operations used by a transfer
type LocalStore interface {
	// Extent returns the number of bytes already on disk, 0 if the file does not exist.
	// A directory at path yields domain.ErrNotRegularFile.
	Extent(path string) (int64, error)

	// OpenAppend opens path for appending and fails with domain.ErrExtentMismatch
	// unless the file holds exactly offset bytes
	OpenAppend(path string, offset int64) (AppendFile, error)

	// Truncate creates path or cuts it to zero length
	Truncate(path string) error

	// Digest hashes the whole file
	Digest(path string, algo domain.DigestAlgorithm) ([]byte, error)
}

// SpaceChecker reports free space for the filesystem holding path
type SpaceChecker interface {
	FreeBytes(path string) (uint64, error)
}
