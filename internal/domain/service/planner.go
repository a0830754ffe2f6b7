package service

import (
	"github.com/vertextoedge/aaxfetch/internal/domain"
)

// Plan decides what the next attempt should do from facts already gathered.
// It performs no I/O.
//
//	ranges  existing vs total        plan
//	no      any                      restart
//	yes     == total                 skip
//	yes     < total                  resume(existing)
//	yes     > total                  restart
//	yes     total unknown, > 0       resume(existing), low confidence
//	yes     total unknown, == 0      resume(0)
func Plan(remote domain.RemoteResource, local domain.LocalFile) domain.TransferPlan {
	existing := local.ExistingBytes
	if existing < 0 {
		existing = 0
	}

	if !remote.SupportsRanges {
		return domain.TransferPlan{
			Kind:   domain.PlanRestart,
			Reason: "server does not support range requests",
		}
	}

	if !remote.TotalSize.Known() {
		return domain.TransferPlan{
			Kind:          domain.PlanResume,
			Offset:        existing,
			LowConfidence: existing > 0,
			Reason:        "remote size unknown",
		}
	}

	total := remote.TotalSize.Bytes()
	switch {
	case existing == total:
		return domain.TransferPlan{
			Kind:   domain.PlanSkip,
			Offset: existing,
			Reason: "already complete",
		}
	case existing > total:
		return domain.TransferPlan{
			Kind:   domain.PlanRestart,
			Reason: "local file larger than remote",
		}
	default:
		return domain.TransferPlan{
			Kind:   domain.PlanResume,
			Offset: existing,
		}
	}
}
