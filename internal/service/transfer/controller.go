package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertextoedge/aaxfetch/internal/domain"
	"github.com/vertextoedge/aaxfetch/internal/domain/event"
	"github.com/vertextoedge/aaxfetch/internal/domain/service"
	"github.com/vertextoedge/aaxfetch/internal/port"
)

// Request describes one asset to fetch
type Request struct {
	Locator domain.Locator
	Dest    string

	// ExpectedDigest is optional; when set the finished file must match it
	ExpectedDigest domain.Digest
}

// Controller drives a transfer through probe, write and verify until the
// destination is complete, a fatal error occurs or attempts run out.
type Controller struct {
	source     port.RemoteSource
	store      port.LocalStore
	space      port.SpaceChecker
	journal    port.JournalRepository
	writer     *StreamWriter
	integrity  *IntegrityCheck
	dispatcher event.EventDispatcher
	logger     *zap.Logger
	cfg        Config
	backoff    backoff
	sleep      Sleeper
}

// Option configures a Controller
type Option func(*Controller)

// WithSleeper replaces the backoff sleep
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

// WithRand replaces the jitter source; f must return values in [0, 1)
func WithRand(f func() float64) Option {
	return func(c *Controller) { c.backoff.rand = f }
}

// WithSpaceChecker enables the free space preflight
func WithSpaceChecker(s port.SpaceChecker) Option {
	return func(c *Controller) { c.space = s }
}

// WithJournal records transfers and attempts
func WithJournal(j port.JournalRepository) Option {
	return func(c *Controller) { c.journal = j }
}

// WithDispatcher sets the event dispatcher
func WithDispatcher(d event.EventDispatcher) Option {
	return func(c *Controller) { c.dispatcher = d }
}

// NewController creates a new Controller
func NewController(
	source port.RemoteSource,
	store port.LocalStore,
	logger *zap.Logger,
	cfg Config,
	opts ...Option,
) *Controller {
	cfg = cfg.withDefaults()
	c := &Controller{
		source:     source,
		store:      store,
		dispatcher: event.NewNullDispatcher(),
		logger:     logger,
		cfg:        cfg,
		backoff: backoff{
			base:   cfg.BaseDelay,
			max:    cfg.MaxDelay,
			jitter: cfg.Jitter,
			rand:   rand.Float64,
		},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.writer = NewStreamWriter(source, store, c.dispatcher, logger, cfg.ChunkSize)
	c.integrity = NewIntegrityCheck(store)
	return c
}

// Fetch runs a transfer under a fresh ID
func (c *Controller) Fetch(ctx context.Context, req Request) (*domain.TransferResult, error) {
	return c.Run(ctx, uuid.NewString(), req)
}

// attemptState is the mutable state of one Run
type attemptState struct {
	id             string
	req            Request
	state          domain.TransferState
	attempt        int
	rangesDisabled bool
	firstPlan      *domain.TransferPlan
	written        int64
	lastWritten    int64
	record         *domain.TransferRecord
	started        time.Time
}

// Run drives the transfer identified by id to Done or Fatal.
// Intermediate failures are logged and dispatched, only the final outcome is returned.
func (c *Controller) Run(ctx context.Context, id string, req Request) (*domain.TransferResult, error) {
	if req.Dest == "" {
		return nil, domain.NewFatalError("request", fmt.Errorf("%w: destination path is empty", domain.ErrInvalidInput))
	}
	if err := req.Locator.Validate(); err != nil {
		return nil, domain.NewFatalError("request", err)
	}

	st := &attemptState{
		id:      id,
		req:     req,
		state:   domain.StateIdle,
		started: time.Now(),
	}
	c.startJournal(st)

	c.logger.Info("transfer started",
		zap.String("transfer_id", id),
		zap.String("source", domain.RedactSource(req.Locator.URL)),
		zap.String("path", req.Dest))

	for {
		st.attempt++
		if err := c.move(st, domain.StateProbing); err != nil {
			return nil, c.fail(st, err)
		}

		result, err := c.attempt(ctx, st)
		if err == nil {
			return c.complete(st, result)
		}

		class := domain.Classify(err)
		if class == domain.ClassFatal || ctx.Err() != nil {
			if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
				err = domain.NewFatalError("transfer", errors.Join(ctx.Err(), err))
			}
			return nil, c.fail(st, err)
		}

		if st.attempt >= c.cfg.MaxAttempts {
			return nil, c.fail(st, fmt.Errorf("%w after %d attempts: %w", domain.ErrAttemptsExhausted, st.attempt, err))
		}

		if err := c.move(st, domain.StateRetrying); err != nil {
			return nil, c.fail(st, err)
		}

		if errors.Is(err, domain.ErrServerRejectedRange) {
			st.rangesDisabled = true
		}
		if class == domain.ClassRestart {
			if terr := c.store.Truncate(req.Dest); terr != nil {
				return nil, c.fail(st, diskError(terr))
			}
		}

		retryAfter, _ := domain.GetRetryAfter(err)
		delay := c.backoff.delay(st.attempt, retryAfter)

		c.dispatcher.Dispatch(event.NewAttemptFailed(id, st.attempt, class.String(), err.Error(), st.lastWritten, delay))
		c.logger.Warn("attempt failed, retrying",
			zap.String("transfer_id", id),
			zap.Int("attempt", st.attempt),
			zap.Int("max_attempts", c.cfg.MaxAttempts),
			zap.String("class", class.String()),
			zap.Duration("delay", delay),
			zap.Error(err))

		if serr := c.sleep(ctx, delay); serr != nil {
			return nil, c.fail(st, domain.NewFatalError("backoff", serr))
		}
	}
}

// attempt performs one probe, plan, write and verify pass
func (c *Controller) attempt(ctx context.Context, st *attemptState) (*domain.TransferResult, error) {
	dest := st.req.Dest
	attemptStart := time.Now()
	st.lastWritten = 0

	remote, err := c.source.Probe(ctx, st.req.Locator)
	if err != nil {
		c.recordAttempt(st, nil, 0, err, attemptStart)
		return nil, err
	}
	if st.rangesDisabled {
		remote.SupportsRanges = false
	}

	existing, err := c.store.Extent(dest)
	if err != nil {
		err = domain.NewFatalError("extent", err)
		c.recordAttempt(st, nil, 0, err, attemptStart)
		return nil, err
	}

	plan := service.Plan(*remote, domain.LocalFile{Path: dest, ExistingBytes: existing})
	if st.firstPlan == nil {
		st.firstPlan = &plan
	}

	c.logger.Debug("attempt planned",
		zap.String("transfer_id", st.id),
		zap.Int("attempt", st.attempt),
		zap.String("plan", plan.Kind.String()),
		zap.Int64("offset", plan.Offset),
		zap.Bool("low_confidence", plan.LowConfidence),
		zap.String("reason", plan.Reason),
		zap.Stringer("total", remote.TotalSize),
		zap.Bool("supports_ranges", remote.SupportsRanges))

	c.dispatcher.Dispatch(event.NewAttemptStarted(st.id, st.attempt, plan.Kind.String(), plan.Offset, remote.TotalSize))

	var outcome domain.TransferOutcome
	if plan.Kind != domain.PlanSkip {
		if err := c.checkSpace(dest, *remote, plan); err != nil {
			c.recordAttempt(st, &plan, 0, err, attemptStart)
			return nil, err
		}

		if err := c.move(st, domain.StateWriting); err != nil {
			return nil, err
		}

		outcome = c.writer.Write(ctx, st.id, dest, *remote, plan)
		st.written += outcome.BytesWritten
		st.lastWritten = outcome.BytesWritten
		if outcome.Err != nil {
			c.recordAttempt(st, &plan, outcome.BytesWritten, outcome.Err, attemptStart)
			return nil, outcome.Err
		}
	}

	size, err := c.integrity.Verify(dest, *remote, plan, outcome, st.req.ExpectedDigest)
	if err != nil {
		// A failed check discards everything on disk
		st.lastWritten = size
		c.recordAttempt(st, &plan, outcome.BytesWritten, err, attemptStart)
		return nil, err
	}
	if plan.LowConfidence && st.req.ExpectedDigest.IsZero() {
		c.logger.Warn("completed without a known size or digest",
			zap.String("transfer_id", st.id),
			zap.String("path", dest),
			zap.Int64("size", size))
	}

	c.recordAttempt(st, &plan, outcome.BytesWritten, nil, attemptStart)

	result := &domain.TransferResult{
		Path:       dest,
		TotalBytes: size,
		Attempts:   st.attempt,
		Skipped:    plan.Kind == domain.PlanSkip && st.written == 0,
	}
	if first := st.firstPlan; first.Kind == domain.PlanResume && first.Offset > 0 {
		result.Resumed = true
		result.ResumedFrom = first.Offset
	}
	return result, nil
}

// checkSpace fails fatally when the remaining bytes cannot fit on disk.
// An unavailable checker skips the check.
func (c *Controller) checkSpace(dest string, remote domain.RemoteResource, plan domain.TransferPlan) error {
	if c.space == nil || !remote.TotalSize.Known() {
		return nil
	}

	offset := int64(0)
	if plan.Kind == domain.PlanResume {
		offset = plan.Offset
	}
	need := remote.TotalSize.Remaining(offset)

	free, err := c.space.FreeBytes(dest)
	if err != nil {
		c.logger.Debug("free space check skipped", zap.Error(err))
		return nil
	}
	if need > 0 && free < uint64(need) {
		return domain.NewFatalError("preflight",
			fmt.Errorf("%w: need %d bytes, %d available", domain.ErrInsufficientSpace, need, free))
	}
	return nil
}

func (c *Controller) move(st *attemptState, to domain.TransferState) error {
	next, err := domain.Transition(st.state, to)
	if err != nil {
		return domain.NewFatalError("controller", err)
	}
	st.state = next
	return nil
}

func (c *Controller) complete(st *attemptState, result *domain.TransferResult) (*domain.TransferResult, error) {
	if err := c.move(st, domain.StateDone); err != nil {
		return nil, c.fail(st, err)
	}

	c.finishJournal(st, domain.JournalStatusCompleted, result.TotalBytes, "")
	c.dispatcher.Dispatch(event.NewTransferCompleted(st.id, result.Path, result.TotalBytes,
		result.Attempts, result.Resumed, result.Skipped, time.Since(st.started)))

	c.logger.Info("transfer completed",
		zap.String("transfer_id", st.id),
		zap.String("path", result.Path),
		zap.Int64("size", result.TotalBytes),
		zap.Int("attempts", result.Attempts),
		zap.Bool("resumed", result.Resumed),
		zap.Bool("skipped", result.Skipped))

	return result, nil
}

func (c *Controller) fail(st *attemptState, err error) error {
	st.state = domain.StateFatal

	c.finishJournal(st, domain.JournalStatusFailed, -1, err.Error())
	c.dispatcher.Dispatch(event.NewTransferFailed(st.id, st.req.Dest, err.Error(), st.attempt))

	c.logger.Error("transfer failed",
		zap.String("transfer_id", st.id),
		zap.String("path", st.req.Dest),
		zap.Int("attempts", st.attempt),
		zap.Error(err))

	return err
}

func (c *Controller) startJournal(st *attemptState) {
	if c.journal == nil {
		return
	}

	st.record = &domain.TransferRecord{
		ID:         st.id,
		Source:     domain.RedactSource(st.req.Locator.URL),
		Path:       st.req.Dest,
		Status:     domain.JournalStatusRunning,
		TotalBytes: -1,
		StartedAt:  st.started,
	}
	if err := c.journal.StartTransfer(st.record); err != nil {
		c.logger.Warn("failed to journal transfer", zap.String("transfer_id", st.id), zap.Error(err))
		st.record = nil
	}
}

func (c *Controller) recordAttempt(st *attemptState, plan *domain.TransferPlan, written int64, err error, started time.Time) {
	if c.journal == nil || st.record == nil {
		return
	}

	rec := &domain.AttemptRecord{
		TransferID:   st.id,
		Attempt:      st.attempt,
		Plan:         "none",
		BytesWritten: written,
		Outcome:      "ok",
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}
	if plan != nil {
		rec.Plan = plan.Kind.String()
		rec.Offset = plan.Offset
	}
	if err != nil {
		rec.Outcome = domain.Classify(err).String()
		rec.Error = err.Error()
	}

	if jerr := c.journal.RecordAttempt(rec); jerr != nil {
		c.logger.Warn("failed to journal attempt", zap.String("transfer_id", st.id), zap.Error(jerr))
	}
}

func (c *Controller) finishJournal(st *attemptState, status string, totalBytes int64, lastErr string) {
	if c.journal == nil || st.record == nil {
		return
	}

	st.record.Finish(status, totalBytes, st.attempt, lastErr)
	if err := c.journal.FinishTransfer(st.record); err != nil {
		c.logger.Warn("failed to journal transfer result", zap.String("transfer_id", st.id), zap.Error(err))
	}
}
