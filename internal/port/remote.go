package port

import (
	"context"
	"io"

	"github.com/vertextoedge/aaxfetch/internal/domain"
	"github.com/vertextoedge/aaxfetch/internal/domain/vo"
)

// RemoteBody is an open response body positioned at Start
type RemoteBody struct {
	Body io.ReadCloser

	// Partial is true for a partial-content response
	Partial bool

	// Start is the offset of the first byte in Body
	Start int64

	// TotalSize is the full entity size as reported by this response
	TotalSize vo.ByteSize
}

// RemoteSource talks to the content service
type RemoteSource interface {
	// Probe learns the total size and range support of the resource.
	// Errors are *domain.TransferError classified retryable or fatal.
	Probe(ctx context.Context, loc domain.Locator) (*domain.RemoteResource, error)

	// Fetch opens the resource body from offset.
	// When ranged is false no Range header is sent and offset must be 0.
	// A server ignoring a range from offset > 0 yields domain.ErrServerRejectedRange;
	// an offset at or past the end yields domain.ErrRangeNotSatisfiable.
	Fetch(ctx context.Context, loc domain.Locator, offset int64, ranged bool) (*RemoteBody, error)
}
