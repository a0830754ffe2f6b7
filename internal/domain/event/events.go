package event

import (
	"time"

	"github.com/vertextoedge/aaxfetch/internal/domain/vo"
)

// Event names
const (
	NameAttemptStarted    = "transfer.attempt_started"
	NameProgress          = "transfer.progress"
	NameAttemptFailed     = "transfer.attempt_failed"
	NameTransferCompleted = "transfer.completed"
	NameTransferFailed    = "transfer.failed"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp  time.Time
	TransferID string
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func newBase(transferID string) BaseEvent {
	return BaseEvent{Timestamp: time.Now(), TransferID: transferID}
}

// AttemptStarted is raised when the controller starts writing a plan
type AttemptStarted struct {
	BaseEvent
	Attempt int
	Plan    string
	Offset  int64
	Total   vo.ByteSize
}

// EventName returns the event name
func (e AttemptStarted) EventName() string {
	return NameAttemptStarted
}

// NewAttemptStarted creates a new AttemptStarted event
func NewAttemptStarted(transferID string, attempt int, plan string, offset int64, total vo.ByteSize) AttemptStarted {
	return AttemptStarted{
		BaseEvent: newBase(transferID),
		Attempt:   attempt,
		Plan:      plan,
		Offset:    offset,
		Total:     total,
	}
}

// Progress is raised after every committed chunk
type Progress struct {
	BaseEvent
	BytesSoFar       int64
	Total            vo.ByteSize
	BytesThisAttempt int64
}

// EventName returns the event name
func (e Progress) EventName() string {
	return NameProgress
}

// NewProgress creates a new Progress event
func NewProgress(transferID string, bytesSoFar int64, total vo.ByteSize, bytesThisAttempt int64) Progress {
	return Progress{
		BaseEvent:        newBase(transferID),
		BytesSoFar:       bytesSoFar,
		Total:            total,
		BytesThisAttempt: bytesThisAttempt,
	}
}

// AttemptFailed is raised when an attempt fails and the controller will retry
type AttemptFailed struct {
	BaseEvent
	Attempt      int
	Class        string
	Error        string
	BytesWritten int64
	Delay        time.Duration
}

// EventName returns the event name
func (e AttemptFailed) EventName() string {
	return NameAttemptFailed
}

// NewAttemptFailed creates a new AttemptFailed event
func NewAttemptFailed(transferID string, attempt int, class, err string, bytesWritten int64, delay time.Duration) AttemptFailed {
	return AttemptFailed{
		BaseEvent:    newBase(transferID),
		Attempt:      attempt,
		Class:        class,
		Error:        err,
		BytesWritten: bytesWritten,
		Delay:        delay,
	}
}

// TransferCompleted is raised when the destination passed verification
type TransferCompleted struct {
	BaseEvent
	Path     string
	Size     int64
	Attempts int
	Resumed  bool
	Skipped  bool
	Duration time.Duration
}

// EventName returns the event name
func (e TransferCompleted) EventName() string {
	return NameTransferCompleted
}

// NewTransferCompleted creates a new TransferCompleted event
func NewTransferCompleted(transferID, path string, size int64, attempts int, resumed, skipped bool, duration time.Duration) TransferCompleted {
	return TransferCompleted{
		BaseEvent: newBase(transferID),
		Path:      path,
		Size:      size,
		Attempts:  attempts,
		Resumed:   resumed,
		Skipped:   skipped,
		Duration:  duration,
	}
}

// TransferFailed is raised when the controller reaches the fatal state
type TransferFailed struct {
	BaseEvent
	Path     string
	Error    string
	Attempts int
}

// EventName returns the event name
func (e TransferFailed) EventName() string {
	return NameTransferFailed
}

// NewTransferFailed creates a new TransferFailed event
func NewTransferFailed(transferID, path, err string, attempts int) TransferFailed {
	return TransferFailed{
		BaseEvent: newBase(transferID),
		Path:      path,
		Error:     err,
		Attempts:  attempts,
	}
}
