package domain

import (
	"errors"
	"testing"

	"github.com/vertextoedge/aaxfetch/internal/domain/vo"
)

func TestLocator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://cds.audible.com/download?product_id=B0", wantErr: false},
		{name: "http", url: "http://127.0.0.1:8080/file", wantErr: false},
		{name: "empty", url: "", wantErr: true},
		{name: "relative", url: "/download", wantErr: true},
		{name: "ftp", url: "ftp://example.com/file", wantErr: true},
		{name: "garbage", url: "://nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Locator{URL: tt.url}.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidLocator) {
				t.Errorf("Validate() error = %v, want ErrInvalidLocator", err)
			}
		})
	}
}

func TestLocalFile_IsComplete(t *testing.T) {
	f := LocalFile{Path: "book.aax", ExistingBytes: 1_000_000}

	if !f.IsComplete(vo.MustByteSize(1_000_000)) {
		t.Error("file with all bytes should be complete")
	}
	if f.IsComplete(vo.MustByteSize(2_000_000)) {
		t.Error("short file should not be complete")
	}
	if f.IsComplete(vo.UnknownSize()) {
		t.Error("completeness cannot be derived from an unknown size")
	}
}

func TestTransferPlan_Ranged(t *testing.T) {
	if (TransferPlan{Kind: PlanResume, Offset: 0}).Ranged() {
		t.Error("resume from zero needs no range")
	}
	if !(TransferPlan{Kind: PlanResume, Offset: 400_000}).Ranged() {
		t.Error("resume from offset needs a range")
	}
	if (TransferPlan{Kind: PlanRestart}).Ranged() {
		t.Error("restart never sends a range")
	}
}
