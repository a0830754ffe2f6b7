package service

import (
	"testing"

	"github.com/vertextoedge/aaxfetch/internal/domain"
	"github.com/vertextoedge/aaxfetch/internal/domain/vo"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name              string
		supportsRanges    bool
		total             vo.ByteSize
		existing          int64
		wantKind          domain.PlanKind
		wantOffset        int64
		wantLowConfidence bool
	}{
		{
			name:           "no range support, empty file",
			supportsRanges: false,
			total:          vo.MustByteSize(1_000_000),
			existing:       0,
			wantKind:       domain.PlanRestart,
		},
		{
			name:           "no range support, partial file",
			supportsRanges: false,
			total:          vo.MustByteSize(1_000_000),
			existing:       400_000,
			wantKind:       domain.PlanRestart,
		},
		{
			name:           "no range support, unknown size",
			supportsRanges: false,
			total:          vo.UnknownSize(),
			existing:       10,
			wantKind:       domain.PlanRestart,
		},
		{
			name:           "complete file",
			supportsRanges: true,
			total:          vo.MustByteSize(1_000_000),
			existing:       1_000_000,
			wantKind:       domain.PlanSkip,
			wantOffset:     1_000_000,
		},
		{
			name:           "fresh download",
			supportsRanges: true,
			total:          vo.MustByteSize(1_000_000),
			existing:       0,
			wantKind:       domain.PlanResume,
			wantOffset:     0,
		},
		{
			name:           "partial download",
			supportsRanges: true,
			total:          vo.MustByteSize(1_000_000),
			existing:       400_000,
			wantKind:       domain.PlanResume,
			wantOffset:     400_000,
		},
		{
			name:           "one byte short",
			supportsRanges: true,
			total:          vo.MustByteSize(1_000_000),
			existing:       999_999,
			wantKind:       domain.PlanResume,
			wantOffset:     999_999,
		},
		{
			name:           "local larger than remote",
			supportsRanges: true,
			total:          vo.MustByteSize(1_000_000),
			existing:       1_000_001,
			wantKind:       domain.PlanRestart,
		},
		{
			name:           "unknown size, empty file",
			supportsRanges: true,
			total:          vo.UnknownSize(),
			existing:       0,
			wantKind:       domain.PlanResume,
			wantOffset:     0,
		},
		{
			name:              "unknown size, partial file",
			supportsRanges:    true,
			total:             vo.UnknownSize(),
			existing:          250_000,
			wantKind:          domain.PlanResume,
			wantOffset:        250_000,
			wantLowConfidence: true,
		},
		{
			name:           "empty remote",
			supportsRanges: true,
			total:          vo.MustByteSize(0),
			existing:       0,
			wantKind:       domain.PlanSkip,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := domain.RemoteResource{TotalSize: tt.total, SupportsRanges: tt.supportsRanges}
			local := domain.LocalFile{Path: "book.aax", ExistingBytes: tt.existing}

			got := Plan(remote, local)
			if got.Kind != tt.wantKind {
				t.Errorf("Plan() kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Offset != tt.wantOffset {
				t.Errorf("Plan() offset = %d, want %d", got.Offset, tt.wantOffset)
			}
			if got.LowConfidence != tt.wantLowConfidence {
				t.Errorf("Plan() low confidence = %v, want %v", got.LowConfidence, tt.wantLowConfidence)
			}
		})
	}
}

// Every resumable extent below a known total must resume exactly at the extent.
func TestPlan_ResumeOffsetEqualsExtent(t *testing.T) {
	const total = 4096
	remote := domain.RemoteResource{TotalSize: vo.MustByteSize(total), SupportsRanges: true}

	for e := int64(0); e < total; e += 97 {
		got := Plan(remote, domain.LocalFile{ExistingBytes: e})
		if got.Kind != domain.PlanResume || got.Offset != e {
			t.Fatalf("Plan(existing=%d) = %s(%d), want resume(%d)", e, got.Kind, got.Offset, e)
		}
	}
}
