package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/vertextoedge/aaxfetch/internal/domain"
	"github.com/vertextoedge/aaxfetch/internal/domain/event"
	"github.com/vertextoedge/aaxfetch/internal/domain/vo"
	"github.com/vertextoedge/aaxfetch/internal/port"
)

// StreamWriter executes one plan: it opens the destination at the planned
// offset, requests the remainder and appends it chunk by chunk.
type StreamWriter struct {
	source     port.RemoteSource
	store      port.LocalStore
	dispatcher event.EventDispatcher
	logger     *zap.Logger
	chunkSize  int
}

// NewStreamWriter creates a new StreamWriter
func NewStreamWriter(
	source port.RemoteSource,
	store port.LocalStore,
	dispatcher event.EventDispatcher,
	logger *zap.Logger,
	chunkSize int,
) *StreamWriter {
	if dispatcher == nil {
		dispatcher = event.NewNullDispatcher()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultConfig().ChunkSize
	}
	return &StreamWriter{
		source:     source,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		chunkSize:  chunkSize,
	}
}

// Write runs plan against dest. The destination length only ever grows by
// whole synced chunks, so it stays a valid checkpoint whatever the outcome.
func (w *StreamWriter) Write(
	ctx context.Context,
	transferID, dest string,
	remote domain.RemoteResource,
	plan domain.TransferPlan,
) domain.TransferOutcome {
	var offset int64
	ranged := false

	switch plan.Kind {
	case domain.PlanSkip:
		return domain.TransferOutcome{}
	case domain.PlanRestart:
		if err := w.store.Truncate(dest); err != nil {
			return domain.TransferOutcome{Err: diskError(err)}
		}
	case domain.PlanResume:
		offset = plan.Offset
		ranged = true
	}

	f, err := w.store.OpenAppend(dest, offset)
	if err != nil {
		if errors.Is(err, domain.ErrExtentMismatch) {
			return domain.TransferOutcome{Err: domain.NewRestartError("write", err)}
		}
		return domain.TransferOutcome{Err: diskError(err)}
	}
	defer f.Close()

	body, err := w.source.Fetch(ctx, remote.Locator, offset, ranged)
	if err != nil {
		if errors.Is(err, domain.ErrRangeNotSatisfiable) {
			w.logger.Debug("server has nothing past offset",
				zap.String("path", dest),
				zap.Int64("offset", offset))
			return domain.TransferOutcome{EndOfStream: true}
		}
		return domain.TransferOutcome{Err: err}
	}
	defer body.Body.Close()

	if !body.Partial && offset > 0 {
		return domain.TransferOutcome{Err: domain.NewRestartError("write", domain.ErrServerRejectedRange)}
	}

	total := remote.TotalSize
	if total.Known() && body.TotalSize.Known() && !total.Equals(body.TotalSize) {
		return domain.TransferOutcome{Err: domain.NewRestartError("write",
			fmt.Errorf("%w: probed %s, response reports %s", domain.ErrSizeChanged, total, body.TotalSize))}
	}
	if !total.Known() {
		total = body.TotalSize
	}

	var reader io.Reader = body.Body
	if total.Known() {
		reader = io.LimitReader(body.Body, total.Remaining(offset))
	}

	return w.copyChunks(ctx, transferID, f, reader, offset, total)
}

// copyChunks appends reader to f one synced chunk at a time
func (w *StreamWriter) copyChunks(
	ctx context.Context,
	transferID string,
	f port.AppendFile,
	reader io.Reader,
	offset int64,
	total vo.ByteSize,
) domain.TransferOutcome {
	buf := make([]byte, w.chunkSize)
	committed := offset
	var written int64

	for {
		if ctx.Err() != nil {
			return domain.TransferOutcome{BytesWritten: written, Err: domain.NewFatalError("write", ctx.Err())}
		}

		n, readErr := fillChunk(reader, buf)
		if n > 0 {
			if err := commitChunk(f, buf[:n], committed); err != nil {
				return domain.TransferOutcome{BytesWritten: written, Err: err}
			}
			committed += int64(n)
			written += int64(n)
			w.dispatcher.Dispatch(event.NewProgress(transferID, committed, total, written))
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if ctx.Err() != nil {
			return domain.TransferOutcome{BytesWritten: written, Err: domain.NewFatalError("write", ctx.Err())}
		}
		return domain.TransferOutcome{
			BytesWritten: written,
			Err: domain.NewRetryableError("write",
				fmt.Errorf("%w at byte %d: %v", domain.ErrNetworkInterrupted, committed, readErr), 0),
		}
	}

	if total.Known() && committed < total.Bytes() {
		return domain.TransferOutcome{
			BytesWritten: written,
			Err: domain.NewRetryableError("write",
				fmt.Errorf("%w: stream ended at byte %d of %d", domain.ErrNetworkInterrupted, committed, total.Bytes()), 0),
		}
	}

	return domain.TransferOutcome{BytesWritten: written, EndOfStream: true}
}

// fillChunk reads until buf is full or the reader fails.
// Unlike io.ReadFull it reports a clean end as io.EOF even after a partial fill.
func fillChunk(r io.Reader, buf []byte) (n int, err error) {
	for n < len(buf) && err == nil {
		var m int
		m, err = r.Read(buf[n:])
		n += m
	}
	return n, err
}

// commitChunk writes and syncs chunk, rolling the file back to committed on failure
func commitChunk(f port.AppendFile, chunk []byte, committed int64) error {
	n, err := f.Write(chunk)
	if err == nil && n < len(chunk) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		if terr := f.Truncate(committed); terr != nil {
			err = errors.Join(err, terr)
		}
		return diskError(err)
	}
	return nil
}

func diskError(err error) error {
	return domain.NewFatalError("write", fmt.Errorf("%w: %v", domain.ErrDiskWriteFailed, err))
}
