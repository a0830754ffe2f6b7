package domain

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// DigestAlgorithm names a supported hash
type DigestAlgorithm string

const (
	DigestMD5    DigestAlgorithm = "md5"
	DigestSHA256 DigestAlgorithm = "sha256"
	DigestSHA512 DigestAlgorithm = "sha512"
)

// Digest is an expected content hash supplied by the caller
type Digest struct {
	Algorithm DigestAlgorithm
	Value     []byte
}

// IsZero returns true if no digest was supplied
func (d Digest) IsZero() bool {
	return d.Algorithm == "" && len(d.Value) == 0
}

// Matches compares a computed sum with the expected value
func (d Digest) Matches(sum []byte) bool {
	return bytes.Equal(d.Value, sum)
}

// String returns the "algo:hex" form
func (d Digest) String() string {
	if d.IsZero() {
		return ""
	}
	return string(d.Algorithm) + ":" + hex.EncodeToString(d.Value)
}

// NewHasher creates a hash.Hash for the algorithm
func NewHasher(algo DigestAlgorithm) (hash.Hash, error) {
	switch algo {
	case DigestMD5:
		return md5.New(), nil
	case DigestSHA256:
		return sha256.New(), nil
	case DigestSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported digest algorithm %q", ErrInvalidInput, algo)
	}
}

// ParseDigest parses "sha256:<hex>", "md5:<hex>" or "sha512:<hex>".
// An empty string yields the zero Digest.
func ParseDigest(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Digest{}, nil
	}

	algo, value, ok := strings.Cut(s, ":")
	if !ok {
		return Digest{}, fmt.Errorf("%w: digest must be algo:hex, got %q", ErrInvalidInput, s)
	}
	a := DigestAlgorithm(strings.ToLower(strings.ReplaceAll(algo, "-", "")))
	h, err := NewHasher(a)
	if err != nil {
		return Digest{}, err
	}

	raw, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return Digest{}, fmt.Errorf("%w: digest value: %v", ErrInvalidInput, err)
	}
	if len(raw) != h.Size() {
		return Digest{}, fmt.Errorf("%w: %s digest must be %d bytes, got %d", ErrInvalidInput, a, h.Size(), len(raw))
	}

	return Digest{Algorithm: a, Value: raw}, nil
}
