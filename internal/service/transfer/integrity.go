package transfer

import (
	"encoding/hex"
	"fmt"

	"github.com/vertextoedge/aaxfetch/internal/domain"
	"github.com/vertextoedge/aaxfetch/internal/port"
)

// IntegrityCheck decides whether a destination is complete after an attempt
type IntegrityCheck struct {
	store port.LocalStore
}

// NewIntegrityCheck creates a new IntegrityCheck
func NewIntegrityCheck(store port.LocalStore) *IntegrityCheck {
	return &IntegrityCheck{store: store}
}

// Verify returns the final size of dest, or a restart-class
// domain.ErrIntegrityMismatch when the file cannot be trusted.
func (c *IntegrityCheck) Verify(
	dest string,
	remote domain.RemoteResource,
	plan domain.TransferPlan,
	outcome domain.TransferOutcome,
	expected domain.Digest,
) (int64, error) {
	size, err := c.store.Extent(dest)
	if err != nil {
		return 0, domain.NewFatalError("verify", err)
	}

	if remote.TotalSize.Known() {
		if size != remote.TotalSize.Bytes() {
			return size, mismatch("size %d, expected %d", size, remote.TotalSize.Bytes())
		}
	} else if plan.Kind != domain.PlanSkip && !outcome.EndOfStream {
		return size, mismatch("size unknown and stream did not reach its end at %d bytes", size)
	}

	if plan.LowConfidence && !outcome.EndOfStream {
		return size, mismatch("resumed without a known size and stream did not reach its end")
	}

	if expected.IsZero() {
		return size, nil
	}

	sum, err := c.store.Digest(dest, expected.Algorithm)
	if err != nil {
		return size, domain.NewFatalError("verify", err)
	}
	if !expected.Matches(sum) {
		return size, mismatch("%s digest %s, expected %s",
			expected.Algorithm, hex.EncodeToString(sum), hex.EncodeToString(expected.Value))
	}

	return size, nil
}

func mismatch(format string, args ...interface{}) error {
	return domain.NewRestartError("verify",
		fmt.Errorf("%w: %s", domain.ErrIntegrityMismatch, fmt.Sprintf(format, args...)))
}
