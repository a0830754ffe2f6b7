package domain

import (
	"net/url"
	"time"
)

// Journal statuses
const (
	JournalStatusRunning   = "running"
	JournalStatusCompleted = "completed"
	JournalStatusFailed    = "failed"
)

// TransferRecord is one transfer in the history journal.
// The journal is history only; the destination length stays the resume checkpoint.
type TransferRecord struct {
	ID         string
	Source     string
	Path       string
	Status     string
	TotalBytes int64
	Attempts   int
	LastError  string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// AttemptRecord is one controller attempt of a transfer
type AttemptRecord struct {
	TransferID   string
	Attempt      int
	Plan         string
	Offset       int64
	BytesWritten int64
	Outcome      string
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Finish marks the record as terminal
func (r *TransferRecord) Finish(status string, totalBytes int64, attempts int, lastErr string) {
	now := time.Now()
	r.Status = status
	r.TotalBytes = totalBytes
	r.Attempts = attempts
	r.LastError = lastErr
	r.FinishedAt = &now
}

// RedactSource strips query and userinfo from a locator URL.
// Signed download URLs carry credentials in the query string.
func RedactSource(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
