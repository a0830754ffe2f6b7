package event

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/aaxfetch/internal/util/ratelimiter"
)

// LoggingHandler logs all events.
// Progress is logged at most once per interval; everything else is logged as it happens.
type LoggingHandler struct {
	logger   *zap.Logger
	progress *ratelimiter.Limiter
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger, progressInterval time.Duration) *LoggingHandler {
	if progressInterval <= 0 {
		progressInterval = 10 * time.Second
	}
	return &LoggingHandler{
		logger:   logger,
		progress: ratelimiter.New(progressInterval),
	}
}

// Handle logs the event
func (h *LoggingHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case AttemptStarted:
		h.progress.Reset()
		h.logger.Info("attempt started",
			zap.String("transfer_id", e.TransferID),
			zap.Int("attempt", e.Attempt),
			zap.String("plan", e.Plan),
			zap.Int64("offset", e.Offset),
			zap.Stringer("total", e.Total),
		)
	case Progress:
		if ok, _ := h.progress.Allow(); !ok {
			return nil
		}
		fields := []zap.Field{
			zap.String("transfer_id", e.TransferID),
			zap.Int64("bytes", e.BytesSoFar),
			zap.String("downloaded", humanize.IBytes(uint64(e.BytesSoFar))),
			zap.Int64("bytes_this_attempt", e.BytesThisAttempt),
		}
		if e.Total.Known() && e.Total.Bytes() > 0 {
			fields = append(fields, zap.Float64("percent", float64(e.BytesSoFar)*100/float64(e.Total.Bytes())))
		}
		h.logger.Info("transfer progress", fields...)
	case AttemptFailed:
		h.logger.Warn("attempt failed",
			zap.String("transfer_id", e.TransferID),
			zap.Int("attempt", e.Attempt),
			zap.String("class", e.Class),
			zap.String("error", e.Error),
			zap.Int64("bytes_written", e.BytesWritten),
			zap.Duration("retry_in", e.Delay),
		)
	case TransferCompleted:
		h.logger.Info("transfer completed",
			zap.String("transfer_id", e.TransferID),
			zap.String("path", e.Path),
			zap.Int64("size", e.Size),
			zap.Int("attempts", e.Attempts),
			zap.Bool("resumed", e.Resumed),
			zap.Bool("skipped", e.Skipped),
			zap.Duration("duration", e.Duration),
		)
	case TransferFailed:
		h.logger.Error("transfer failed",
			zap.String("transfer_id", e.TransferID),
			zap.String("path", e.Path),
			zap.String("error", e.Error),
			zap.Int("attempts", e.Attempts),
		)
	default:
		h.logger.Debug("domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *LoggingHandler) HandledEvents() []string {
	return []string{"*"}
}

// StatsHandler counts attempts and failures of a transfer
type StatsHandler struct {
	mu          sync.Mutex
	attempts    int64
	retries     int64
	restarts    int64
	wastedBytes int64
	lastTotal   int64
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{}
}

// Handle updates counters based on the event
func (h *StatsHandler) Handle(event DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e := event.(type) {
	case AttemptStarted:
		h.attempts++
		h.lastTotal = e.Total.Bytes()
	case AttemptFailed:
		h.retries++
		if e.Class == "restart" {
			h.restarts++
			h.wastedBytes += e.BytesWritten
		}
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *StatsHandler) HandledEvents() []string {
	return []string{
		NameAttemptStarted,
		NameAttemptFailed,
	}
}

// GetStats returns current counters
func (h *StatsHandler) GetStats() map[string]int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return map[string]int64{
		"attempts":     h.attempts,
		"retries":      h.retries,
		"restarts":     h.restarts,
		"wasted_bytes": h.wastedBytes,
		"last_total":   h.lastTotal,
	}
}
