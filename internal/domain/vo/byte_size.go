package vo

import (
	"errors"

	"github.com/dustin/go-humanize"
)

// ByteSize is a byte count that may be unknown.
// Remote resources do not always advertise their length, so the zero-information
// case is part of the value rather than a sentinel scattered through callers.
type ByteSize struct {
	bytes int64
	known bool
}

const (
	KB int64 = 1024
	MB int64 = 1024 * KB
	GB int64 = 1024 * MB
)

var (
	ErrNegativeSize = errors.New("byte size cannot be negative")
)

// NewByteSize creates a known ByteSize.
func NewByteSize(bytes int64) (ByteSize, error) {
	if bytes < 0 {
		return ByteSize{}, ErrNegativeSize
	}
	return ByteSize{bytes: bytes, known: true}, nil
}

// MustByteSize creates a known ByteSize, panicking if invalid.
func MustByteSize(bytes int64) ByteSize {
	bs, err := NewByteSize(bytes)
	if err != nil {
		panic(err)
	}
	return bs
}

// UnknownSize returns a ByteSize with no value.
func UnknownSize() ByteSize {
	return ByteSize{}
}

// FromContentLength converts an HTTP content length, where -1 means unknown.
func FromContentLength(n int64) ByteSize {
	if n < 0 {
		return UnknownSize()
	}
	return ByteSize{bytes: n, known: true}
}

// Bytes returns the size in bytes, or -1 when unknown.
func (bs ByteSize) Bytes() int64 {
	if !bs.known {
		return -1
	}
	return bs.bytes
}

// Known reports whether the size has a value.
func (bs ByteSize) Known() bool {
	return bs.known
}

// Equals returns true if both sizes are known and equal, or both unknown.
func (bs ByteSize) Equals(other ByteSize) bool {
	return bs.known == other.known && bs.bytes == other.bytes
}

// Remaining returns how many bytes are left after offset.
// Returns -1 when the size is unknown and 0 if offset is past the end.
func (bs ByteSize) Remaining(offset int64) int64 {
	if !bs.known {
		return -1
	}
	if offset >= bs.bytes {
		return 0
	}
	return bs.bytes - offset
}

// String returns a human-readable string representation.
func (bs ByteSize) String() string {
	if !bs.known {
		return "unknown"
	}
	return humanize.IBytes(uint64(bs.bytes))
}
