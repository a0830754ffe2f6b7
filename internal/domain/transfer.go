package domain

import (
	"errors"
	"net/url"

	"github.com/vertextoedge/aaxfetch/internal/domain/vo"
)

// Locator addresses the remote asset.
// Authorization is passed through to the server as-is and never inspected.
type Locator struct {
	URL           string
	Authorization string
}

// Validate checks that the locator has an absolute http(s) URL
func (l Locator) Validate() error {
	if l.URL == "" {
		return ErrInvalidLocator
	}
	u, err := url.Parse(l.URL)
	if err != nil {
		return errors.Join(ErrInvalidLocator, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidLocator
	}
	return nil
}

// RemoteResource is what a probe learned about the asset.
// It is re-created on every attempt.
type RemoteResource struct {
	TotalSize      vo.ByteSize
	SupportsRanges bool
	ContentType    string
	Locator        Locator
}

// LocalFile is the destination file as found on disk.
// Its length is the resume checkpoint.
type LocalFile struct {
	Path          string
	ExistingBytes int64
}

// IsComplete returns true if the file holds exactly total bytes
func (f LocalFile) IsComplete(total vo.ByteSize) bool {
	return total.Known() && f.ExistingBytes == total.Bytes()
}

// PlanKind is the decision taken for one attempt
type PlanKind int

const (
	PlanSkip PlanKind = iota
	PlanResume
	PlanRestart
)

// String returns the plan name
func (k PlanKind) String() string {
	switch k {
	case PlanSkip:
		return "skip"
	case PlanResume:
		return "resume"
	case PlanRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// TransferPlan is produced fresh for each attempt and discarded after it.
type TransferPlan struct {
	Kind   PlanKind
	Offset int64

	// LowConfidence marks a resume whose completion cannot be checked against a size;
	// verification is stricter for these.
	LowConfidence bool
	Reason        string
}

// Ranged returns true if only a partial-content response can satisfy the plan
func (p TransferPlan) Ranged() bool {
	return p.Kind == PlanResume && p.Offset > 0
}

// TransferOutcome is the result of one StreamWriter run.
type TransferOutcome struct {
	BytesWritten int64
	EndOfStream  bool
	Err          error
}

// OK returns true if the attempt finished without error
func (o TransferOutcome) OK() bool {
	return o.Err == nil
}

// Status returns "ok" or "failed"
func (o TransferOutcome) Status() string {
	if o.Err == nil {
		return "ok"
	}
	return "failed"
}

// TransferResult is reported to the caller when a transfer completes
type TransferResult struct {
	Path       string
	TotalBytes int64
	Attempts   int

	// Resumed indicates whether existing bytes on disk were kept
	Resumed bool

	// ResumedFrom is the first offset fetched by this run
	ResumedFrom int64

	// Skipped is true when the file was already complete
	Skipped bool
}
